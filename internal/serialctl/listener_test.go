package serialctl

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rchanrussell/go-looper/internal/engine"
)

func newListenerUnderTest(t *testing.T) (*engine.Looper, net.Conn, chan struct{}, context.CancelFunc) {
	t.Helper()

	looper, err := engine.New(engine.Config{
		Channels:    1,
		Tracks:      16,
		Groups:      4,
		SampleLimit: 4096,
		MaxFrames:   128,
	})
	require.NoError(t, err)

	local, remote := net.Pipe()
	quit := make(chan struct{})
	listener := NewListener(remote, looper, func() { close(quit) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = listener.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		_ = local.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("listener did not stop")
		}
	})

	return looper, local, quit, cancel
}

func send(t *testing.T, conn net.Conn, frame string) byte {
	t.Helper()
	_, err := conn.Write([]byte(frame))
	require.NoError(t, err)

	reply := make([]byte, 1)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(reply)
	require.NoError(t, err)
	return reply[0]
}

func TestListenerAcksValidCommand(t *testing.T) {
	t.Parallel()

	looper, conn, _, _ := newListenerUnderTest(t)

	assert.Equal(t, Ack, send(t, conn, "r02g1\r"))

	cmd := looper.Inbox().Drain()
	require.NotNil(t, cmd)
	assert.Equal(t, engine.EventRecord, cmd.Event)
	assert.Equal(t, 2, cmd.Track)
	assert.Equal(t, 1, cmd.Group)
}

func TestListenerNaksInvalidCommand(t *testing.T) {
	t.Parallel()

	looper, conn, _, _ := newListenerUnderTest(t)

	assert.Equal(t, Nak, send(t, conn, "x0000\r"))
	assert.Nil(t, looper.Inbox().Drain())
}

func TestListenerHandlesFragmentedFrames(t *testing.T) {
	t.Parallel()

	looper, conn, _, _ := newListenerUnderTest(t)

	_, err := conn.Write([]byte("m0"))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, Ack, send(t, conn, "300\r"))

	cmd := looper.Inbox().Drain()
	require.NotNil(t, cmd)
	assert.Equal(t, engine.EventMute, cmd.Event)
	assert.Equal(t, 3, cmd.Track)
}

func TestListenerQuitStopsListening(t *testing.T) {
	t.Parallel()

	looper, conn, quit, _ := newListenerUnderTest(t)

	assert.Equal(t, Ack, send(t, conn, "q0000\r"))

	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatal("quit callback did not fire")
	}
	assert.Nil(t, looper.Inbox().Drain())
}
