package engine

import "fmt"

// TrackState is the lifecycle state of a single track.
type TrackState uint8

const (
	// TrackOff marks an empty track available for recording.
	TrackOff TrackState = iota
	// TrackPlayback marks a track the mixer sums into the output.
	TrackPlayback
	// TrackRecording marks the track currently receiving live input.
	TrackRecording
	// TrackMute marks a recorded track the mixer skips.
	TrackMute
)

// String returns a short lowercase name for diagnostics output.
func (s TrackState) String() string {
	switch s {
	case TrackOff:
		return "off"
	case TrackPlayback:
		return "playback"
	case TrackRecording:
		return "recording"
	case TrackMute:
		return "mute"
	default:
		return "unknown"
	}
}

// Track owns one (mono) or two (stereo) contiguous sample buffers of fixed
// capacity plus the loop body markers and the current read/write position.
// All buffers are allocated once in newTrack and never grow.
//
// Invariants: 0 <= startIdx <= endIdx <= maxIdx and 0 <= currIdx <= maxIdx,
// except for the transient window between recording start (endIdx reset to
// zero) and the first position update.
type Track struct {
	bufs     [][]float32
	maxIdx   int
	state    TrackState
	repeat   bool
	startIdx int
	endIdx   int
	currIdx  int
}

// newTrack allocates a track with the given channel count and per-channel
// capacity in samples.
func newTrack(channels, capacity int) *Track {
	bufs := make([][]float32, channels)
	for ch := range bufs {
		bufs[ch] = make([]float32, capacity)
	}
	return &Track{bufs: bufs, maxIdx: capacity}
}

// Channels returns the number of sample buffers the track owns.
func (t *Track) Channels() int { return len(t.bufs) }

// Capacity returns the per-channel capacity in samples.
func (t *Track) Capacity() int { return t.maxIdx }

// State returns the track state.
func (t *Track) State() TrackState { return t.state }

// SetState sets the track state.
func (t *Track) SetState(s TrackState) { t.state = s }

// Repeat reports whether the track wraps to startIdx on reaching endIdx.
func (t *Track) Repeat() bool { return t.repeat }

// SetRepeat sets the repeat flag.
func (t *Track) SetRepeat(r bool) { t.repeat = r }

// StartIndex returns the first sample of the loop body.
func (t *Track) StartIndex() int { return t.startIdx }

// SetStartIndex sets the first sample of the loop body.
func (t *Track) SetStartIndex(i int) { t.startIdx = i }

// EndIndex returns one past the last recorded sample.
func (t *Track) EndIndex() int { return t.endIdx }

// SetEndIndex sets one past the last recorded sample.
func (t *Track) SetEndIndex(i int) { t.endIdx = i }

// CurrentIndex returns the current read/write position.
func (t *Track) CurrentIndex() int { return t.currIdx }

// SetCurrentIndex sets the current read/write position.
func (t *Track) SetCurrentIndex(i int) { t.currIdx = i }

// checkRange panics when an access would run past the buffer. Out-of-range
// copies are programmer errors: every caller sits behind the position
// engine's clamping, so a violation here means corrupted cycle accounting.
func (t *Track) checkRange(op string, ch, offset, n int) {
	if ch < 0 || ch >= len(t.bufs) {
		panic(fmt.Sprintf("track %s: channel %d out of range (channels=%d)", op, ch, len(t.bufs)))
	}
	if offset < 0 || n < 0 || offset+n > t.maxIdx {
		panic(fmt.Sprintf("track %s: range [%d:%d] exceeds capacity %d", op, offset, offset+n, t.maxIdx))
	}
}

// Write copies len(src) samples into the selected channel starting at
// absolute index offset.
func (t *Track) Write(ch, offset int, src []float32) {
	t.checkRange("write", ch, offset, len(src))
	copy(t.bufs[ch][offset:], src)
}

// Read copies len(dst) samples out of the selected channel starting at
// absolute index offset.
func (t *Track) Read(ch, offset int, dst []float32) {
	t.checkRange("read", ch, offset, len(dst))
	copy(dst, t.bufs[ch][offset:offset+len(dst)])
}

// Overdub sums len(src) samples into the selected channel starting at
// absolute index offset, applying the limiter to each result.
func (t *Track) Overdub(ch, offset int, src []float32) {
	t.checkRange("overdub", ch, offset, len(src))
	buf := t.bufs[ch][offset : offset+len(src)]
	for i := range src {
		buf[i] = clampSample(limit(float64(buf[i]) + float64(src[i])))
	}
}

// sample returns the raw sample at index i for the mixer. The index must
// already be bounded by endIdx.
func (t *Track) sample(ch, i int) float32 {
	return t.bufs[ch][i]
}

// reset returns the track to the Off state with zero indices. Buffers keep
// their contents; endIdx zero makes them unreachable.
func (t *Track) reset() {
	t.state = TrackOff
	t.repeat = false
	t.startIdx = 0
	t.endIdx = 0
	t.currIdx = 0
}
