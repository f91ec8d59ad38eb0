package serialctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rchanrussell/go-looper/internal/engine"
)

func TestParseAcceptedFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame string
		want  engine.Command
	}{
		{"record", "r03g1\r", engine.Command{Event: engine.EventRecord, Track: 3, Group: 1}},
		{"record upper", "R15g3\r", engine.Command{Event: engine.EventRecord, Track: 15, Group: 3}},
		{"overdub", "o0700\r", engine.Command{Event: engine.EventOverdub, Track: 7}},
		{"play keep", "p0200\r", engine.Command{Event: engine.EventPlay, Track: 2, Repeat: engine.RepeatKeep}},
		{"play repeat on", "p0200r", engine.Command{Event: engine.EventPlay, Track: 2, Repeat: engine.RepeatOn}},
		{"play repeat off", "p0200s", engine.Command{Event: engine.EventPlay, Track: 2, Repeat: engine.RepeatOff}},
		{"mute", "m0900\r", engine.Command{Event: engine.EventMute, Track: 9}},
		{"unmute", "U0900\r", engine.Command{Event: engine.EventUnmute, Track: 9}},
		{"add to group", "t04g2\r", engine.Command{Event: engine.EventAddToGroup, Track: 4, Group: 2}},
		{"remove from group", "d04g2\r", engine.Command{Event: engine.EventRemoveFromGroup, Track: 4, Group: 2}},
		{"set group", "g00g3\r", engine.Command{Event: engine.EventSetGroup, Group: 3}},
		{"reset", "s0000\r", engine.Command{Event: engine.EventReset}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd, err := Parse([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestParseRejectedFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame string
	}{
		{"unknown command", "x0000\r"},
		{"track not numeric", "rZ3g1\r"},
		{"track out of range", "r16g1\r"},
		{"group not numeric", "r03gX\r"},
		{"group out of range", "r03g4\r"},
		{"missing group marker", "r03x1\r"},
		{"bad terminator", "m0900x"},
		{"bad play terminator", "p0200q"},
		{"short frame", "r03g1"},
		{"empty frame", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.frame))
			assert.Error(t, err)
		})
	}
}

func TestParseQuit(t *testing.T) {
	t.Parallel()

	cmd, err := Parse([]byte("q0000\r"))
	require.NoError(t, err)
	assert.Equal(t, eventQuit, cmd.Event)
}
