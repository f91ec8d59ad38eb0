// Package realtime implements the command that runs the looper against a
// live audio device.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rchanrussell/go-looper/internal/conf"
	"github.com/rchanrussell/go-looper/internal/diag"
	"github.com/rchanrussell/go-looper/internal/engine"
	"github.com/rchanrussell/go-looper/internal/logging"
	"github.com/rchanrussell/go-looper/internal/serialctl"
	"github.com/rchanrussell/go-looper/internal/transport"
)

// Command creates the realtime looper command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run the looper against a live audio device",
		Long:  "Open the configured full-duplex audio device and run the loop engine until interrupted or a serial QUIT command arrives.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRealtime(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVar(&settings.Serial.Enabled, "serial", viper.GetBool("serial.enabled"), "Enable the serial control surface")
	cmd.Flags().StringVar(&settings.Serial.Port, "serialport", viper.GetString("serial.port"), "Serial control port")
	cmd.Flags().BoolVar(&settings.Diag.Enabled, "diag", viper.GetBool("diag.enabled"), "Enable the diagnostics HTTP server")
	cmd.Flags().StringVar(&settings.Diag.Listen, "listen", viper.GetString("diag.listen"), "Diagnostics listen address")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func runRealtime(settings *conf.Settings) error {
	logger := logging.ForService("realtime")
	if logger == nil {
		logger = slog.Default()
	}

	looper, err := engine.New(engine.Config{
		Channels:    settings.Audio.Channels,
		Tracks:      settings.Looper.Tracks,
		Groups:      settings.Looper.Groups,
		SampleLimit: conf.EffectiveSampleLimit(settings),
		MaxFrames:   max(engine.DefaultMaxFrames, settings.Audio.FrameSize),
		SampleRate:  settings.Audio.SampleRate,
	})
	if err != nil {
		return err
	}

	device, err := transport.Open(transport.Config{
		Device:     settings.Audio.Device,
		SampleRate: settings.Audio.SampleRate,
		Channels:   settings.Audio.Channels,
		FrameSize:  settings.Audio.FrameSize,
	}, looper)
	if err != nil {
		return err
	}
	defer device.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)

	if settings.Serial.Enabled {
		listener, err := serialctl.Open(settings.Serial.Port, settings.Serial.Baud, looper, cancel)
		if err != nil {
			return err
		}
		go func() {
			if err := listener.Run(ctx); err != nil {
				errCh <- err
				cancel()
			}
		}()
		logger.Info("serial control surface listening",
			"port", settings.Serial.Port,
			"baud", settings.Serial.Baud)
	}

	if settings.Diag.Enabled {
		server, err := diag.New(settings.Diag.Listen, looper)
		if err != nil {
			return err
		}
		go func() {
			if err := server.Start(ctx); err != nil {
				errCh <- err
				cancel()
			}
		}()
	}

	if err := device.Start(); err != nil {
		return err
	}

	logger.Info("looper running",
		"device", settings.Audio.Device,
		"tracks", settings.Looper.Tracks,
		"groups", settings.Looper.Groups,
		"capacity_samples", looper.Config().SampleLimit)

	<-ctx.Done()

	select {
	case err := <-errCh:
		return err
	default:
	}

	logger.Info("looper stopped",
		"cycles", looper.Cycles(),
		"frames", looper.Frames())
	return nil
}
