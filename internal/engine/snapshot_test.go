package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotReflectsEngineState(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	record(l, 0, 1, 2, 0.5)

	snap := l.ReadSnapshot()
	assert.Equal(t, "playback", snap.State)
	assert.Equal(t, 1, snap.SelectedGroup)
	require.Len(t, snap.Tracks, 4)
	assert.Equal(t, "playback", snap.Tracks[0].State)
	assert.True(t, snap.Tracks[0].Repeat)
	assert.Equal(t, 2*testFrames, snap.Tracks[0].End)
	assert.Equal(t, []int{1}, snap.Tracks[0].Groups)
	assert.Equal(t, "off", snap.Tracks[1].State)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	cycle(l)

	snap := l.ReadSnapshot()
	snap.Tracks[0].State = "mangled"
	snap.MasterLength[0] = 999

	fresh := l.ReadSnapshot()
	assert.Equal(t, "off", fresh.Tracks[0].State)
	assert.Zero(t, fresh.MasterLength[0])
}

func TestSnapshotAvailableBeforeFirstCycle(t *testing.T) {
	t.Parallel()

	l := newTestLooper(t, 1)
	snap := l.ReadSnapshot()
	assert.Equal(t, "passthrough", snap.State)
	require.Len(t, snap.Tracks, 4)
}
