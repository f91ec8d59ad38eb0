package engine

import (
	"sync/atomic"
	"time"

	"github.com/rchanrussell/go-looper/internal/errors"
)

// SystemState is the top-level mode the process cycle dispatches on.
type SystemState uint8

const (
	// StatePassthrough forwards input to output, no tracks advance.
	StatePassthrough SystemState = iota
	// StatePlayback mixes the active group plus live input to output.
	StatePlayback
	// StateRecording copies live input into the selected track, then mixes.
	StateRecording
	// StateOverdubbing sums live input onto the selected track, then mixes.
	StateOverdubbing
	// StateCalibration records live input into the fixed calibration track,
	// then mixes. Used for latency measurement.
	StateCalibration
)

// String returns a short lowercase name for diagnostics output.
func (s SystemState) String() string {
	switch s {
	case StatePassthrough:
		return "passthrough"
	case StatePlayback:
		return "playback"
	case StateRecording:
		return "recording"
	case StateOverdubbing:
		return "overdubbing"
	case StateCalibration:
		return "calibration"
	default:
		return "unknown"
	}
}

// Config sizes a Looper at construction. Zero fields take their defaults.
type Config struct {
	Channels    int // 1 mono, 2 stereo
	Tracks      int
	Groups      int
	SampleLimit int // per-track capacity in samples
	MaxFrames   int // largest cycle the engine will be asked to process
	SampleRate  int // used only to estimate frames elapsed within a cycle
}

func (c *Config) applyDefaults() {
	if c.Channels == 0 {
		c.Channels = 2
	}
	if c.Tracks == 0 {
		c.Tracks = DefaultNumTracks
	}
	if c.Groups == 0 {
		c.Groups = DefaultNumGroups
	}
	if c.SampleLimit == 0 {
		c.SampleLimit = DefaultSampleLimit
	}
	if c.MaxFrames == 0 {
		c.MaxFrames = DefaultMaxFrames
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
}

// Looper is the root aggregate: all tracks, group membership, master
// positions, the selected recording target, the system state and the
// command inbox. It is mutated exclusively by the realtime goroutine
// inside Process; the control surface reaches it only through Submit.
type Looper struct {
	cfg Config

	tracks      []*Track
	calibration *Track

	// members[g][t] reports whether track t belongs to group g. Tracks
	// live in the tracks arena; groups hold indices, never pointers.
	members [][]bool

	masterLength  []int // per group: longest track end in that group
	masterCurrIdx int
	selectedGroup int
	selectedTrack int
	state         SystemState

	inbox Inbox

	// internal mixdown buffers, sized once to MaxFrames
	mixL []float32
	mixR []float32

	// edge alignment latches, single-use, zeroed at cycle end
	recFrameDelay  int
	playFrameDelay int
	// finalize is the track whose recording tail must still be captured
	// during the cycle that observed the stop command; finalizeAt is the
	// position recording stopped at, saved before any realignment
	finalize        *Track
	finalizeAt      int
	finalizeOverdub bool

	// cycleStart lets the control goroutine estimate how many frames of
	// the current cycle have already elapsed when a command arrives
	cycleStart atomic.Int64

	// counters published for metrics and diagnostics
	cycles      atomic.Uint64
	frames      atomic.Uint64
	applied     atomic.Uint64
	ignored     atomic.Uint64
	overflows   atomic.Uint64
	publishedAt atomic.Uint64 // seqlock for snapshots

	snap Snapshot
}

// New allocates a Looper and all of its sample buffers. Process allocates
// nothing after New returns.
func New(cfg Config) (*Looper, error) {
	cfg.applyDefaults()

	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, errors.Newf("invalid channel count: %d", cfg.Channels).
			Component(ComponentEngine).
			Category(errors.CategoryConfiguration).
			Context("channels", cfg.Channels).
			Build()
	}
	if cfg.Tracks < 1 || cfg.Groups < 1 || cfg.SampleLimit < 1 || cfg.MaxFrames < 1 {
		return nil, errors.Newf("invalid engine sizing: tracks=%d groups=%d limit=%d frames=%d",
			cfg.Tracks, cfg.Groups, cfg.SampleLimit, cfg.MaxFrames).
			Component(ComponentEngine).
			Category(errors.CategoryConfiguration).
			Build()
	}

	l := &Looper{
		cfg:          cfg,
		tracks:       make([]*Track, cfg.Tracks),
		calibration:  newTrack(cfg.Channels, cfg.SampleLimit),
		members:      make([][]bool, cfg.Groups),
		masterLength: make([]int, cfg.Groups),
		mixL:         make([]float32, cfg.MaxFrames),
		mixR:         make([]float32, cfg.MaxFrames),
	}
	for i := range l.tracks {
		l.tracks[i] = newTrack(cfg.Channels, cfg.SampleLimit)
	}
	for g := range l.members {
		l.members[g] = make([]bool, cfg.Tracks)
	}
	l.snap = newSnapshot(cfg.Tracks, cfg.Groups)
	l.publishSnapshot()
	return l, nil
}

// Config returns the effective configuration after defaulting.
func (l *Looper) Config() Config { return l.cfg }

// Track returns the track at index i for introspection and tests.
func (l *Looper) Track(i int) *Track { return l.tracks[i] }

// CalibrationTrack returns the fixed diagnostic recording track.
func (l *Looper) CalibrationTrack() *Track { return l.calibration }

// State returns the current system state.
func (l *Looper) State() SystemState { return l.state }

// SelectedGroup returns the active group index.
func (l *Looper) SelectedGroup() int { return l.selectedGroup }

// SelectedTrack returns the current recording destination index.
func (l *Looper) SelectedTrack() int { return l.selectedTrack }

// MasterCurrentIndex returns the active group's shared position.
func (l *Looper) MasterCurrentIndex() int { return l.masterCurrIdx }

// MasterLength returns the longest track end in group g.
func (l *Looper) MasterLength(g int) int { return l.masterLength[g] }

// InGroup reports whether track t belongs to group g.
func (l *Looper) InGroup(g, t int) bool { return l.members[g][t] }

// Inbox exposes the command inbox for metrics.
func (l *Looper) Inbox() *Inbox { return &l.inbox }

// Submit validates and publishes a command to the inbox, stamping it with
// the edge-alignment frame delay estimated from the current cycle. Called
// from control goroutines; never from the realtime path.
func (l *Looper) Submit(cmd Command) error {
	if cmd.Track < 0 || cmd.Track >= l.cfg.Tracks {
		return errors.Newf("track %d out of range", cmd.Track).
			Component(ComponentEngine).
			Category(errors.CategoryValidation).
			Context("track", cmd.Track).
			Build()
	}
	if cmd.Group < 0 || cmd.Group >= l.cfg.Groups {
		return errors.Newf("group %d out of range", cmd.Group).
			Component(ComponentEngine).
			Category(errors.CategoryValidation).
			Context("group", cmd.Group).
			Build()
	}

	elapsed := l.framesIntoCycle()
	switch cmd.Event {
	case EventRecord, EventOverdub, EventCalibrate:
		cmd.RecFrameDelay = elapsed
	case EventPlay, EventEndCalibrate:
		cmd.PlayFrameDelay = elapsed
	}

	l.inbox.Publish(cmd)
	return nil
}

// framesIntoCycle estimates how many frames of the cycle currently being
// processed have elapsed, bounded by the configured maximum cycle size.
func (l *Looper) framesIntoCycle() int {
	start := l.cycleStart.Load()
	if start == 0 {
		return 0
	}
	elapsed := time.Now().UnixNano() - start
	if elapsed < 0 {
		return 0
	}
	frames := int(elapsed * int64(l.cfg.SampleRate) / int64(time.Second))
	if frames > l.cfg.MaxFrames {
		frames = l.cfg.MaxFrames
	}
	return frames
}

// Process runs one audio cycle. inL and outL must be the same length n;
// inR and outR may be nil on mono devices. The engine never reads or
// writes past n frames and never blocks.
func (l *Looper) Process(inL, inR, outL, outR []float32) {
	n := len(outL)
	if n == 0 {
		return
	}
	if n > l.cfg.MaxFrames {
		n = l.cfg.MaxFrames
		inL = inL[:n]
		outL = outL[:n]
		if inR != nil {
			inR = inR[:n]
		}
		if outR != nil {
			outR = outR[:n]
		}
	}

	l.cycleStart.Store(time.Now().UnixNano())

	// 1. Drain at most one command and apply it before any audio work.
	if cmd := l.inbox.Drain(); cmd != nil {
		l.recFrameDelay = min(cmd.RecFrameDelay, n)
		l.playFrameDelay = min(cmd.PlayFrameDelay, n)
		l.apply(cmd)
	}

	// 2. Capture the recording tail of a stop observed this cycle: only
	// the first playFrameDelay input samples belong to the loop.
	if l.finalize != nil {
		if l.playFrameDelay > 0 {
			l.captureInto(l.finalize, inL, inR, l.finalizeAt, 0, l.playFrameDelay, l.finalizeOverdub)
		}
		l.finalize = nil
		l.finalizeOverdub = false
	}

	// 3. Dispatch on system state.
	switch l.state {
	case StatePassthrough:
		copy(outL, inL)
		if outR != nil {
			if inR != nil {
				copy(outR, inR)
			} else {
				copy(outR, inL) // simulated mono
			}
		}
		l.endCycle(n)
		return

	case StateRecording:
		t := l.tracks[l.selectedTrack]
		l.captureInto(t, inL, inR, t.currIdx, l.recFrameDelay, n, false)

	case StateOverdubbing:
		t := l.tracks[l.selectedTrack]
		l.captureInto(t, inL, inR, t.currIdx, l.recFrameDelay, n, true)

	case StateCalibration:
		l.captureInto(l.calibration, inL, inR, l.calibration.currIdx, l.recFrameDelay, n, false)
		l.advanceCalibration(n)

	case StatePlayback:
		// mixdown only
	}

	// 4. Mixdown of the active group plus live input, shared by the
	// playback, recording, overdubbing and calibration paths.
	l.mixGroup(l.selectedGroup, inL, inR, n)
	copy(outL, l.mixL[:n])
	if outR != nil {
		copy(outR, l.mixR[:n])
	}

	// 5. Advance positions, then clear the single-use delay latches.
	l.advancePositions(n)
	l.endCycle(n)
}

// captureInto copies (or sums, when overdub is set) input samples into a
// track. Destination and source are offset by from so a command that
// arrived mid-cycle does not smear samples across the loop boundary. The
// copy is truncated at the track's capacity; overflow accounting is the
// position engine's job.
func (l *Looper) captureInto(t *Track, inL, inR []float32, dst, from, to int, overdub bool) {
	if from >= to || inL == nil {
		return
	}
	start := dst + from
	if start >= t.maxIdx {
		return
	}
	count := to - from
	if start+count > t.maxIdx {
		count = t.maxIdx - start
	}

	writeCh := func(ch int, src []float32) {
		if overdub {
			t.Overdub(ch, start, src[from:from+count])
		} else {
			t.Write(ch, start, src[from:from+count])
		}
	}

	writeCh(0, inL)
	if t.Channels() > 1 {
		if inR != nil {
			writeCh(1, inR)
		} else {
			writeCh(1, inL)
		}
	}
}

// advanceCalibration moves the calibration track position. The calibration
// track belongs to no group, so the position engine does not see it.
func (l *Looper) advanceCalibration(n int) {
	c := l.calibration
	c.currIdx += n
	if c.currIdx > l.cfg.SampleLimit {
		c.currIdx = l.cfg.SampleLimit
		c.state = TrackPlayback
		l.state = StatePassthrough
		l.overflows.Add(1)
	}
	if c.currIdx > c.endIdx {
		c.endIdx = c.currIdx
	}
}

// endCycle clears the single-use edge alignment latches, bumps counters
// and publishes a diagnostics snapshot.
func (l *Looper) endCycle(n int) {
	l.recFrameDelay = 0
	l.playFrameDelay = 0
	l.cycles.Add(1)
	l.frames.Add(uint64(n))
	l.publishSnapshot()
}

// Cycles returns the number of process cycles completed.
func (l *Looper) Cycles() uint64 { return l.cycles.Load() }

// Frames returns the total frames processed.
func (l *Looper) Frames() uint64 { return l.frames.Load() }

// CommandsApplied returns how many commands caused a state transition.
func (l *Looper) CommandsApplied() uint64 { return l.applied.Load() }

// CommandsIgnored returns how many commands were not legal in the state
// they arrived in.
func (l *Looper) CommandsIgnored() uint64 { return l.ignored.Load() }

// Overflows returns how many times a recording track hit its capacity.
func (l *Looper) Overflows() uint64 { return l.overflows.Load() }
