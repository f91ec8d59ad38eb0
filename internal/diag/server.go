// Package diag serves the looper's diagnostics surface over HTTP: a
// health check, a JSON snapshot of engine state, and prometheus metrics.
package diag

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rchanrussell/go-looper/internal/engine"
	"github.com/rchanrussell/go-looper/internal/logging"
	"github.com/rchanrussell/go-looper/internal/observability/metrics"
)

// Server is the diagnostics HTTP server.
type Server struct {
	echo   *echo.Echo
	looper *engine.Looper
	logger *slog.Logger
	listen string
}

// New builds the server and registers the engine collectors on a private
// prometheus registry.
func New(listen string, looper *engine.Looper) (*Server, error) {
	logger := logging.ForService("diag")
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	if _, err := metrics.NewEngineMetrics(registry, looper); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		looper: looper,
		logger: logger,
		listen: listen,
	}

	e.GET("/healthz", s.handleHealthz)
	e.GET("/api/v1/state", s.handleState)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return s, nil
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.listen); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info("diagnostics server listening", "addr", s.listen)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"cycles": s.looper.Cycles(),
	})
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.looper.ReadSnapshot())
}
