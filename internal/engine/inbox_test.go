package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxDrainEmpty(t *testing.T) {
	t.Parallel()

	var in Inbox
	assert.Nil(t, in.Drain())
}

func TestInboxOverwritesPending(t *testing.T) {
	t.Parallel()

	var in Inbox
	in.Publish(Command{Event: EventRecord, Track: 1})
	in.Publish(Command{Event: EventPlay, Track: 2})

	cmd := in.Drain()
	require.NotNil(t, cmd)
	assert.Equal(t, EventPlay, cmd.Event)
	assert.Equal(t, 2, cmd.Track)
	assert.Nil(t, in.Drain())
	assert.Equal(t, uint64(1), in.Overruns())
	assert.Equal(t, uint64(2), in.Published())
}

func TestInboxSingleProducerSingleConsumer(t *testing.T) {
	t.Parallel()

	var in Inbox
	const messages = 10000

	var wg sync.WaitGroup
	var drained int

	wg.Go(func() {
		for drained < messages {
			if cmd := in.Drain(); cmd != nil {
				// every drained command is intact, never torn
				assert.Equal(t, cmd.Track, cmd.Group)
				drained++
			}
		}
	})

	for i := 0; i < messages; i++ {
		in.Publish(Command{Event: EventPlay, Track: i % 10, Group: i % 10})
	}

	// The consumer may never see all messages since publishes overwrite;
	// unblock it with a final flood.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			assert.GreaterOrEqual(t, in.Published(), uint64(messages))
			return
		default:
			in.Publish(Command{Event: EventPlay, Track: 3, Group: 3})
		}
	}
}
