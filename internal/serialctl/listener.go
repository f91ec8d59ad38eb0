package serialctl

import (
	"context"
	"io"
	"log/slog"

	"go.bug.st/serial"

	"github.com/rchanrussell/go-looper/internal/engine"
	"github.com/rchanrussell/go-looper/internal/errors"
	"github.com/rchanrussell/go-looper/internal/logging"
)

// Listener drains six-byte command frames from a serial port, validates
// them, and submits the resulting events to the engine. It is the single
// producer of the engine's command inbox.
type Listener struct {
	port   io.ReadWriteCloser
	looper *engine.Looper
	logger *slog.Logger
	onQuit func()
}

// Open opens the configured serial port and returns a listener bound to
// the engine. onQuit runs once when a QUIT command is accepted.
func Open(portName string, baud int, looper *engine.Looper, onQuit func()) (*Listener, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, errors.New(err).
			Component("serialctl").
			Category(errors.CategorySerialIO).
			Context("port", portName).
			Context("baud", baud).
			Build()
	}
	return NewListener(port, looper, onQuit), nil
}

// NewListener wraps an already open port. Split out from Open so tests
// can drive the listener over an in-memory pipe.
func NewListener(port io.ReadWriteCloser, looper *engine.Looper, onQuit func()) *Listener {
	logger := logging.ForService("serialctl")
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		port:   port,
		looper: looper,
		logger: logger,
		onQuit: onQuit,
	}
}

// Run reads frames until the context is cancelled, the port fails, or a
// QUIT command arrives. It always closes the port on the way out.
func (l *Listener) Run(ctx context.Context) error {
	defer func() { _ = l.port.Close() }()

	go func() {
		<-ctx.Done()
		_ = l.port.Close() // unblocks the pending read
	}()

	frame := make([]byte, 0, FrameLen)
	buf := make([]byte, FrameLen)

	for {
		n, err := l.port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.New(err).
				Component("serialctl").
				Category(errors.CategorySerialIO).
				Build()
		}

		frame = append(frame, buf[:n]...)
		for len(frame) >= FrameLen {
			quit := l.handleFrame(frame[:FrameLen])
			frame = frame[:copy(frame, frame[FrameLen:])]
			if quit {
				return nil
			}
		}
	}
}

// handleFrame parses, submits and acknowledges one frame. Returns true on
// an accepted QUIT.
func (l *Listener) handleFrame(raw []byte) bool {
	cmd, err := Parse(raw)
	if err != nil {
		l.logger.Debug("command rejected", "frame", string(raw), "error", err)
		l.respond(Nak)
		return false
	}

	if cmd.Event == eventQuit {
		l.logger.Info("quit command received")
		l.respond(Ack)
		if l.onQuit != nil {
			l.onQuit()
		}
		return true
	}

	if err := l.looper.Submit(cmd); err != nil {
		l.logger.Debug("command not accepted by engine", "event", cmd.Event.String(), "error", err)
		l.respond(Nak)
		return false
	}

	l.logger.Debug("command accepted",
		"event", cmd.Event.String(),
		"track", cmd.Track,
		"group", cmd.Group)
	l.respond(Ack)
	return false
}

func (l *Listener) respond(b byte) {
	if _, err := l.port.Write([]byte{b}); err != nil {
		l.logger.Warn("failed to write command response", "error", err)
	}
}
