// Package calibrate implements the round-trip latency measurement
// command: the playback side emits an impulse train while the engine
// records the capture side into its fixed calibration track, and the
// offset between emission and the recorded peak estimates the latency.
package calibrate

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rchanrussell/go-looper/internal/conf"
	"github.com/rchanrussell/go-looper/internal/engine"
	"github.com/rchanrussell/go-looper/internal/errors"
	"github.com/rchanrussell/go-looper/internal/logging"
	"github.com/rchanrussell/go-looper/internal/transport"
)

const peakThreshold = 0.25

// Command creates the calibration command.
func Command(settings *conf.Settings) *cobra.Command {
	var seconds int

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Measure round-trip audio latency",
		Long:  "Emit an impulse train on the playback side, record the capture side, and report the offset between them. Requires a loopback path from output to input.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalibration(settings, seconds)
		},
	}

	cmd.Flags().IntVar(&seconds, "seconds", 2, "How long to measure")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func runCalibration(settings *conf.Settings, seconds int) error {
	logger := logging.ForService("calibrate")
	if logger == nil {
		logger = slog.Default()
	}

	looper, err := engine.New(engine.Config{
		Channels:    settings.Audio.Channels,
		Tracks:      settings.Looper.Tracks,
		Groups:      settings.Looper.Groups,
		SampleLimit: settings.Audio.SampleRate * (seconds + 1),
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

	// One impulse per half second leaves room for any plausible latency.
	interval := settings.Audio.SampleRate / 2
	device.EnableImpulse(interval)

	if err := looper.Submit(engine.Command{Event: engine.EventCalibrate}); err != nil {
		return err
	}
	if err := device.Start(); err != nil {
		return err
	}

	logger.Info("calibration running", "seconds", seconds, "impulse_interval", interval)
	time.Sleep(time.Duration(seconds) * time.Second)

	if err := looper.Submit(engine.Command{Event: engine.EventEndCalibrate}); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond) // let the engine drain the stop
	device.Close()

	latency, ok := measureLatency(looper.CalibrationTrack(), interval)
	if !ok {
		return errors.Newf("no impulse detected on the capture side; is output looped back to input?").
			Component("calibrate").
			Category(errors.CategoryAudioDevice).
			Build()
	}

	ms := float64(latency) / float64(settings.Audio.SampleRate) * 1000
	fmt.Printf("Estimated round-trip latency: %d frames (%.2f ms)\n", latency, ms)
	return nil
}

// measureLatency scans the calibration track for the first recorded peak
// and returns its offset within the impulse interval.
func measureLatency(track *engine.Track, interval int) (int, bool) {
	end := track.EndIndex()
	buf := make([]float32, 1)
	for i := 0; i < end; i++ {
		track.Read(0, i, buf)
		if buf[0] > peakThreshold || buf[0] < -peakThreshold {
			return i % interval, true
		}
	}
	return 0, false
}
