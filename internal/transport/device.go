// Package transport adapts a full-duplex audio device to the engine's
// process cycle. It owns the device lifecycle and the deinterleave /
// interleave scratch buffers; the engine itself never touches the device.
//
// Capture frames reach the engine unshifted: the adapter applies no latency
// compensation between the capture and playback paths, and the engine
// writes at its current position.
package transport

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"

	"github.com/rchanrussell/go-looper/internal/engine"
	"github.com/rchanrussell/go-looper/internal/errors"
	"github.com/rchanrussell/go-looper/internal/logging"
)

// Config describes the device the adapter should open.
type Config struct {
	Device     string // device name, "default" for the system default
	SampleRate int
	Channels   int // 1 mono, 2 stereo
	FrameSize  int // requested period size in frames
}

// Device is a running full-duplex audio device driving one engine.
type Device struct {
	cfg    Config
	looper *engine.Looper
	logger *slog.Logger

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	// deinterleave/interleave scratch, sized once in Open
	inL, inR   []float32
	outL, outR []float32

	// impulse injection for calibration runs; impulseEvery of zero
	// disables injection
	impulseEvery  int
	frameCounter  atomic.Uint64
	lastImpulseAt atomic.Uint64

	running   atomic.Bool
	closeOnce sync.Once
}

// backendForPlatform returns the malgo backend for the current platform.
func backendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, errors.Newf("unsupported operating system: %s", runtime.GOOS).
			Component("transport").
			Category(errors.CategoryAudioDevice).
			Context("os", runtime.GOOS).
			Build()
	}
}

// Open initializes the audio context and the duplex device but does not
// start the callback. The engine's configured channel count must match
// the adapter's.
func Open(cfg Config, looper *engine.Looper) (*Device, error) {
	logger := logging.ForService("transport")
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Channels != looper.Config().Channels {
		return nil, errors.Newf("device channels (%d) do not match engine channels (%d)",
			cfg.Channels, looper.Config().Channels).
			Component("transport").
			Category(errors.CategoryConfiguration).
			Build()
	}

	backend, err := backendForPlatform()
	if err != nil {
		return nil, err
	}

	mctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("transport").
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Build()
	}

	d := &Device{
		cfg:    cfg,
		looper: looper,
		logger: logger,
		ctx:    mctx,
		inL:    make([]float32, looper.Config().MaxFrames),
		inR:    make([]float32, looper.Config().MaxFrames),
		outL:   make([]float32, looper.Config().MaxFrames),
		outR:   make([]float32, looper.Config().MaxFrames),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.FrameSize)
	deviceConfig.Alsa.NoMMap = 1

	if cfg.Device != "" && cfg.Device != "default" {
		info, err := findDevice(mctx, cfg.Device)
		if err != nil {
			_ = mctx.Uninit()
			return nil, err
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: d.onData,
		Stop: func() {
			d.logger.Warn("audio device stopped")
			d.running.Store(false)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		return nil, errors.New(err).
			Component("transport").
			Category(errors.CategoryAudioDevice).
			Context("device", cfg.Device).
			Context("operation", "init_device").
			Build()
	}
	d.device = device

	logger.Info("audio device opened",
		"device", cfg.Device,
		"samplerate", cfg.SampleRate,
		"channels", cfg.Channels,
		"framesize", cfg.FrameSize)

	return d, nil
}

// Start begins the realtime callback.
func (d *Device) Start() error {
	if err := d.device.Start(); err != nil {
		return errors.New(err).
			Component("transport").
			Category(errors.CategoryAudioDevice).
			Context("operation", "start_device").
			Build()
	}
	d.running.Store(true)
	return nil
}

// Close stops the device and releases the audio context. Safe to call
// more than once.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		d.running.Store(false)
		if d.device != nil {
			d.device.Uninit()
		}
		if d.ctx != nil {
			_ = d.ctx.Uninit()
		}
	})
}

// IsRunning reports whether the callback is live.
func (d *Device) IsRunning() bool { return d.running.Load() }

// FramesElapsed returns the total frames the device has delivered.
func (d *Device) FramesElapsed() uint64 { return d.frameCounter.Load() }

// EnableImpulse makes the playback side emit a single full-scale impulse
// every interval frames; the impulse replaces the engine output at that
// frame. Used by the calibration command; interval zero disables injection.
func (d *Device) EnableImpulse(interval int) {
	d.impulseEvery = interval
}

// LastImpulseFrame returns the absolute frame index the most recent
// impulse was emitted at.
func (d *Device) LastImpulseFrame() uint64 { return d.lastImpulseAt.Load() }

// onData is the device callback: deinterleave the capture buffer, run the
// engine cycle, interleave the engine output into the playback buffer.
// Everything it touches is pre-allocated.
func (d *Device) onData(pOutput, pInput []byte, frameCount uint32) {
	n := int(frameCount)
	if n == 0 {
		return
	}
	if n > len(d.inL) {
		n = len(d.inL)
	}

	ch := d.cfg.Channels

	// The device delivers packed little-endian f32 frames; view them as
	// float32 in place rather than copying byte by byte.
	var in []float32
	if len(pInput) > 0 {
		in = unsafe.Slice((*float32)(unsafe.Pointer(&pInput[0])), n*ch)
	}
	var out []float32
	if len(pOutput) > 0 {
		out = unsafe.Slice((*float32)(unsafe.Pointer(&pOutput[0])), n*ch)
	}

	inL := d.inL[:n]
	outL := d.outL[:n]
	var inR, outR []float32
	if ch > 1 {
		inR = d.inR[:n]
		outR = d.outR[:n]
	}

	if in != nil {
		for i := 0; i < n; i++ {
			inL[i] = in[i*ch]
			if ch > 1 {
				inR[i] = in[i*ch+1]
			}
		}
	} else {
		for i := range inL {
			inL[i] = 0
		}
		if inR != nil {
			for i := range inR {
				inR[i] = 0
			}
		}
	}

	d.looper.Process(inL, inR, outL, outR)

	base := d.frameCounter.Load()
	if d.impulseEvery > 0 {
		for i := 0; i < n; i++ {
			if (base+uint64(i))%uint64(d.impulseEvery) == 0 {
				outL[i] = 1.0
				if outR != nil {
					outR[i] = 1.0
				}
				d.lastImpulseAt.Store(base + uint64(i))
			}
		}
	}

	if out != nil {
		for i := 0; i < n; i++ {
			out[i*ch] = outL[i]
			if ch > 1 {
				out[i*ch+1] = outR[i]
			}
		}
	}

	d.frameCounter.Add(uint64(n))
}
