// conf/resources.go: derive buffer sizing from system resources.
package conf

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/rchanrussell/go-looper/internal/logging"
)

const bytesPerSample = 4 // float32

// EffectiveSampleLimit returns the per-track capacity in samples. The
// configured duration sets the ceiling; when a memory cap is configured
// the capacity shrinks so that all track buffers together stay within
// that fraction of available memory. Stereo halves the per-channel
// capacity since each track carries two buffers.
func EffectiveSampleLimit(s *Settings) int {
	limit := s.Looper.MaxSeconds * s.Audio.SampleRate

	if s.Looper.MemoryCap <= 0 {
		return limit
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		logging.Warn("could not read system memory, using configured capacity",
			"error", err)
		return limit
	}

	budget := float64(vm.Available) * s.Looper.MemoryCap
	perTrack := int(budget) / s.Looper.Tracks / s.Audio.Channels / bytesPerSample
	if perTrack > 0 && perTrack < limit {
		logging.Info("track capacity reduced by memory cap",
			"configured_samples", limit,
			"effective_samples", perTrack)
		limit = perTrack
	}

	return limit
}
