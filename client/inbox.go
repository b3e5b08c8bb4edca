package client

import (
	"context"
	"errors"
	"time"
)

var (
	errWaitTimeout    = errors.New("wait timed out")
	errConnectionLost = errors.New("connection to server lost")
)

// inbox buffers server frames between the receive loop (sole producer) and
// the controller (sole consumer). A wait that pulls a frame it cannot handle
// parks it; parked frames are replayed, in order, to the main loop. This is
// a single-outstanding-wait discipline: at most one wait is in flight, so
// frames can never be routed to the wrong waiter.
type inbox struct {
	frames chan Frame
	lost   chan struct{} // closed by the producer when the connection dies
	parked []Frame       // consumer-owned, needs no locking
}

func newInbox(size int) *inbox {
	return &inbox{
		frames: make(chan Frame, size),
		lost:   make(chan struct{}),
	}
}

// put enqueues a frame from the receive loop.
func (q *inbox) put(ctx context.Context, f Frame) {
	select {
	case q.frames <- f:
	case <-ctx.Done():
	}
}

// close signals that no more frames will arrive on this connection.
func (q *inbox) close() {
	close(q.lost)
}

// take returns the next frame from the connection. A zero timeout waits
// until the context is cancelled. Buffered frames win over the lost signal
// so nothing received before a disconnect is dropped.
func (q *inbox) take(ctx context.Context, timeout time.Duration) (Frame, error) {
	select {
	case f := <-q.frames:
		return f, nil
	default:
	}

	if timeout <= 0 {
		select {
		case f := <-q.frames:
			return f, nil
		case <-q.lost:
			return Frame{}, errConnectionLost
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-q.frames:
		return f, nil
	case <-q.lost:
		return Frame{}, errConnectionLost
	case <-timer.C:
		return Frame{}, errWaitTimeout
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// park holds a frame the current wait cannot handle for the main loop.
func (q *inbox) park(f Frame) {
	q.parked = append(q.parked, f)
}

// replay pops the oldest parked frame, if any.
func (q *inbox) replay() (Frame, bool) {
	if len(q.parked) == 0 {
		return Frame{}, false
	}
	f := q.parked[0]
	q.parked = q.parked[1:]
	return f, true
}
