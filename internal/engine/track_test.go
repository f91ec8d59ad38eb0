package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackWriteRead(t *testing.T) {
	t.Parallel()

	tr := newTrack(2, 1024)
	src := []float32{0.1, 0.2, 0.3, 0.4}

	tr.Write(0, 100, src)
	dst := make([]float32, 4)
	tr.Read(0, 100, dst)
	assert.Equal(t, src, dst)

	// the other channel stays untouched
	tr.Read(1, 100, dst)
	assert.Equal(t, []float32{0, 0, 0, 0}, dst)
}

func TestTrackOverdubSums(t *testing.T) {
	t.Parallel()

	tr := newTrack(1, 256)
	tr.Write(0, 0, []float32{0.25, 0.25})
	tr.Overdub(0, 0, []float32{0.5, -0.5})

	dst := make([]float32, 2)
	tr.Read(0, 0, dst)
	assert.InDelta(t, 0.75, dst[0], 1e-6)
	assert.InDelta(t, -0.25, dst[1], 1e-6)
}

func TestTrackOverdubLimiter(t *testing.T) {
	t.Parallel()

	// Overdubbing near-full-scale onto near-full-scale must engage the
	// limiter; the stored value can never exceed the hard ceiling.
	hot := float32(0.8) * MaxSampleValue / 0.9 // 0.8 * MaxFloat32
	tr := newTrack(1, 16)
	tr.Write(0, 0, []float32{hot})
	tr.Overdub(0, 0, []float32{hot})

	dst := make([]float32, 1)
	tr.Read(0, 0, dst)
	assert.Equal(t, MaxSampleValue, dst[0])
}

func TestTrackWritePanicsPastCapacity(t *testing.T) {
	t.Parallel()

	tr := newTrack(1, 8)
	assert.Panics(t, func() {
		tr.Write(0, 4, make([]float32, 8))
	})
	assert.Panics(t, func() {
		tr.Read(1, 0, make([]float32, 1)) // no such channel
	})
}

func TestTrackResetClearsIndices(t *testing.T) {
	t.Parallel()

	tr := newTrack(1, 64)
	tr.SetState(TrackPlayback)
	tr.SetRepeat(true)
	tr.SetStartIndex(4)
	tr.SetEndIndex(32)
	tr.SetCurrentIndex(10)

	tr.reset()
	require.Equal(t, TrackOff, tr.State())
	assert.False(t, tr.Repeat())
	assert.Zero(t, tr.StartIndex())
	assert.Zero(t, tr.EndIndex())
	assert.Zero(t, tr.CurrentIndex())
}
