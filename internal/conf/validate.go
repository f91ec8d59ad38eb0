// conf/validate.go: settings validation.
package conf

import (
	"github.com/rchanrussell/go-looper/internal/errors"
)

// Hard bounds of the engine. The serial protocol encodes tracks as two
// digits and groups as one, which caps the address space.
const (
	MaxTracks = 16
	MaxGroups = 4
)

// ValidateSettings checks the loaded settings for values the engine
// cannot operate with.
func ValidateSettings(s *Settings) error {
	if s.Audio.SampleRate < 8000 || s.Audio.SampleRate > 192000 {
		return errors.Newf("invalid sample rate: %d", s.Audio.SampleRate).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("samplerate", s.Audio.SampleRate).
			Build()
	}

	if s.Audio.Channels != 1 && s.Audio.Channels != 2 {
		return errors.Newf("invalid channel count: %d, must be 1 or 2", s.Audio.Channels).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("channels", s.Audio.Channels).
			Build()
	}

	if s.Audio.FrameSize <= 0 || s.Audio.FrameSize > 8192 {
		return errors.Newf("invalid frame size: %d", s.Audio.FrameSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("framesize", s.Audio.FrameSize).
			Build()
	}

	if s.Looper.Tracks <= 0 || s.Looper.Tracks > MaxTracks {
		return errors.Newf("invalid track count: %d, must be 1..%d", s.Looper.Tracks, MaxTracks).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("tracks", s.Looper.Tracks).
			Build()
	}

	if s.Looper.Groups <= 0 || s.Looper.Groups > MaxGroups {
		return errors.Newf("invalid group count: %d, must be 1..%d", s.Looper.Groups, MaxGroups).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("groups", s.Looper.Groups).
			Build()
	}

	if s.Looper.MaxSeconds <= 0 {
		return errors.Newf("invalid track capacity: %d seconds", s.Looper.MaxSeconds).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("maxseconds", s.Looper.MaxSeconds).
			Build()
	}

	if s.Looper.MemoryCap < 0 || s.Looper.MemoryCap > 1 {
		return errors.Newf("invalid memory cap: %f, must be within [0, 1]", s.Looper.MemoryCap).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("memorycap", s.Looper.MemoryCap).
			Build()
	}

	if s.Serial.Enabled && s.Serial.Port == "" {
		return errors.Newf("serial control enabled but no port configured").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return nil
}
