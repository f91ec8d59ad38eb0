package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cycle pushes one silent cycle through the engine so a published command
// gets applied.
func cycle(l *Looper) {
	out := make([]float32, testFrames)
	l.Process(make([]float32, testFrames), nil, out, nil)
}

func record(l *Looper, track, group int, cycles int, level float32) {
	l.Inbox().Publish(Command{Event: EventRecord, Track: track, Group: group})
	out := make([]float32, testFrames)
	in := constFrames(level)
	for range cycles {
		l.Process(in, nil, out, nil)
	}
	l.Inbox().Publish(Command{Event: EventPlay, Track: track, Repeat: RepeatOn})
	cycle(l)
}

func TestIllegalEventsAreIgnored(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)

	// Overdub, mute, group selection are meaningless in passthrough.
	for _, ev := range []EventType{EventOverdub, EventMute, EventUnmute, EventPlay, EventSetGroup, EventAddToGroup} {
		l.Inbox().Publish(Command{Event: ev, Track: 0})
		cycle(l)
		assert.Equal(t, StatePassthrough, l.State(), "event %s", ev)
	}
	assert.Equal(t, uint64(6), l.CommandsIgnored())
	assert.Zero(t, l.CommandsApplied())
}

func TestRecordIgnoredWhileRecording(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	l.Inbox().Publish(Command{Event: EventRecord, Track: 0, Group: 0})
	cycle(l)
	require.Equal(t, StateRecording, l.State())

	l.Inbox().Publish(Command{Event: EventRecord, Track: 1, Group: 0})
	cycle(l)
	assert.Equal(t, StateRecording, l.State())
	assert.Equal(t, 0, l.SelectedTrack())
	assert.Equal(t, TrackOff, l.Track(1).State())
}

func TestPassthroughEventResets(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 0, 4, 0.5)
	require.Equal(t, StatePlayback, l.State())

	l.Inbox().Publish(Command{Event: EventPassthrough})
	cycle(l)
	assert.Equal(t, StatePassthrough, l.State())
	assert.Equal(t, TrackOff, l.Track(0).State())
	assert.Zero(t, l.MasterLength(0))
	assert.False(t, l.InGroup(0, 0))
}

func TestMuteUnmute(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 0, 2, 0.5)

	out := make([]float32, testFrames)
	silence := constFrames(0)

	l.Inbox().Publish(Command{Event: EventMute, Track: 0})
	l.Process(silence, nil, out, nil)
	assert.Equal(t, TrackMute, l.Track(0).State())

	l.Process(silence, nil, out, nil)
	for i := range out {
		assert.Zero(t, out[i], "muted track leaked at sample %d", i)
	}

	l.Inbox().Publish(Command{Event: EventUnmute, Track: 0})
	l.Process(silence, nil, out, nil)
	assert.Equal(t, TrackPlayback, l.Track(0).State())

	l.Process(silence, nil, out, nil)
	for i := range out {
		assert.InDelta(t, 0.5, out[i], 1e-6, "sample %d", i)
	}
}

func TestMuteLeavesOffTracksAlone(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 0, 2, 0.5)

	l.Inbox().Publish(Command{Event: EventMute, Track: 3})
	cycle(l)
	assert.Equal(t, TrackOff, l.Track(3).State())
}

func TestAddRemoveTrackGroupMembership(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 0, 4, 0.5)
	end := l.Track(0).EndIndex()

	// A track may belong to several groups simultaneously.
	l.Inbox().Publish(Command{Event: EventAddToGroup, Track: 0, Group: 2})
	cycle(l)
	assert.True(t, l.InGroup(0, 0))
	assert.True(t, l.InGroup(2, 0))
	assert.Equal(t, end, l.MasterLength(2))

	l.Inbox().Publish(Command{Event: EventRemoveFromGroup, Track: 0, Group: 2})
	cycle(l)
	assert.False(t, l.InGroup(2, 0))
	assert.Zero(t, l.MasterLength(2))
}

func TestRepeatUpdateDuringPlayback(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 0, 2, 0.5)
	require.True(t, l.Track(0).Repeat())

	l.Inbox().Publish(Command{Event: EventPlay, Track: 0, Repeat: RepeatOff})
	cycle(l)
	assert.False(t, l.Track(0).Repeat())

	// RepeatKeep leaves the flag untouched.
	l.Inbox().Publish(Command{Event: EventPlay, Track: 0, Repeat: RepeatKeep})
	cycle(l)
	assert.False(t, l.Track(0).Repeat())
}

func TestOverdubSumsOntoLoop(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 0, 4, 0.25) // 512-sample loop, position at 128 afterwards

	l.Inbox().Publish(Command{Event: EventOverdub, Track: 0})
	out := make([]float32, testFrames)
	in := constFrames(0.25)
	for range 2 {
		l.Process(in, nil, out, nil)
	}
	require.Equal(t, StateOverdubbing, l.State())

	l.Inbox().Publish(Command{Event: EventPlay, Track: 0})
	cycle(l)
	require.Equal(t, StatePlayback, l.State())

	// The overdubbed stretch doubled, the rest and the loop length are
	// untouched.
	tr := l.Track(0)
	assert.Equal(t, 4*testFrames, tr.EndIndex())
	buf := make([]float32, 4*testFrames)
	tr.Read(0, 0, buf)
	for i := range buf {
		want := float32(0.25)
		if i >= testFrames && i < 3*testFrames {
			want = 0.5
		}
		assert.InDelta(t, want, buf[i], 1e-6, "sample %d", i)
	}
}

func TestOverdubRequiresRecordedGroupMember(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 0, 2, 0.5)

	// Track 1 is empty and outside the group: both rejected.
	l.Inbox().Publish(Command{Event: EventOverdub, Track: 1})
	cycle(l)
	assert.Equal(t, StatePlayback, l.State())
	assert.Equal(t, 0, l.SelectedTrack())
}

func TestStartRecordingResetsMasterForNewGroup(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 0, 4, 0.5)
	require.NotZero(t, l.MasterLength(0))

	for range 3 {
		cycle(l) // move the master clock away from zero
	}

	l.Inbox().Publish(Command{Event: EventRecord, Track: 1, Group: 1})
	cycle(l)
	tr := l.Track(1)
	assert.Equal(t, 1, l.SelectedGroup())
	assert.Zero(t, tr.StartIndex())
	assert.Equal(t, testFrames, tr.CurrentIndex())
}

func TestSecondTrackRecordsAtMasterPosition(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 0, 4, 0.5)

	cycle(l) // master now at one cycle
	master := l.MasterCurrentIndex()
	require.NotZero(t, master)

	l.Inbox().Publish(Command{Event: EventRecord, Track: 1, Group: 0})
	cycle(l)
	tr := l.Track(1)
	assert.Equal(t, master, tr.StartIndex())
	assert.Equal(t, StateRecording, l.State())
	// Track 0 keeps looping underneath the new recording.
	assert.Equal(t, TrackPlayback, l.Track(0).State())
}

func TestCalibrationRecordsIntoFixedTrack(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	out := make([]float32, testFrames)

	l.Inbox().Publish(Command{Event: EventCalibrate})
	in := constFrames(0.6)
	for range 3 {
		l.Process(in, nil, out, nil)
	}
	require.Equal(t, StateCalibration, l.State())

	c := l.CalibrationTrack()
	assert.Equal(t, 3*testFrames, c.EndIndex())
	buf := make([]float32, testFrames)
	c.Read(0, 0, buf)
	for i := range buf {
		assert.InDelta(t, 0.6, buf[i], 1e-6)
	}

	// Regular tracks are untouched by a calibration run.
	for i := range 4 {
		assert.Equal(t, TrackOff, l.Track(i).State())
	}

	l.Inbox().Publish(Command{Event: EventEndCalibrate})
	cycle(l)
	assert.Equal(t, StatePassthrough, l.State())
}
