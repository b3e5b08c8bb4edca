package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInboxTake(t *testing.T) {
	ctx := context.Background()

	t.Run("returns buffered frames in order", func(t *testing.T) {
		q := newInbox(4)
		q.put(ctx, Frame{Type: "first"})
		q.put(ctx, Frame{Type: "second"})

		f, err := q.take(ctx, time.Second)
		require.NoError(t, err)
		require.Equal(t, "first", f.Type)

		f, err = q.take(ctx, time.Second)
		require.NoError(t, err)
		require.Equal(t, "second", f.Type)
	})

	t.Run("times out when nothing arrives", func(t *testing.T) {
		q := newInbox(4)
		_, err := q.take(ctx, 20*time.Millisecond)
		require.ErrorIs(t, err, errWaitTimeout)
	})

	t.Run("reports connection loss once drained", func(t *testing.T) {
		q := newInbox(4)
		q.put(ctx, Frame{Type: "last_words"})
		q.close()

		f, err := q.take(ctx, time.Second)
		require.NoError(t, err, "frames received before the disconnect must not be dropped")
		require.Equal(t, "last_words", f.Type)

		_, err = q.take(ctx, time.Second)
		require.ErrorIs(t, err, errConnectionLost)
	})

	t.Run("honours context cancellation on an indefinite wait", func(t *testing.T) {
		q := newInbox(4)
		cctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			_, err := q.take(cctx, 0)
			done <- err
		}()
		cancel()
		select {
		case err := <-done:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("take did not return after cancellation")
		}
	})
}

func TestInboxPark(t *testing.T) {
	q := newInbox(4)

	_, ok := q.replay()
	require.False(t, ok, "nothing parked yet")

	q.park(Frame{Type: "a"})
	q.park(Frame{Type: "b"})

	f, ok := q.replay()
	require.True(t, ok)
	require.Equal(t, "a", f.Type, "parked frames replay oldest first")

	f, ok = q.replay()
	require.True(t, ok)
	require.Equal(t, "b", f.Type)

	_, ok = q.replay()
	require.False(t, ok)
}
