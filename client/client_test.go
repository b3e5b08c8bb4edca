package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"arena/game"
	"arena/searcher"
)

// fakeTransport is a scripted server: every Send is recorded and handed to
// the responder, whose replies are queued for Receive.
type fakeTransport struct {
	respond func(Frame) []Frame

	mu        sync.Mutex
	sent      []Frame
	incoming  chan Frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport(respond func(Frame) []Frame) *fakeTransport {
	return &fakeTransport{
		respond:  respond,
		incoming: make(chan Frame, 16),
		closed:   make(chan struct{}),
	}
}

func (f *fakeTransport) Send(ctx context.Context, frame Frame) error {
	select {
	case <-f.closed:
		return errors.New("transport closed")
	default:
	}
	f.mu.Lock()
	f.sent = append(f.sent, frame)
	f.mu.Unlock()
	if f.respond != nil {
		for _, reply := range f.respond(frame) {
			f.incoming <- reply
		}
	}
	return nil
}

func (f *fakeTransport) Receive(ctx context.Context) (Frame, error) {
	select {
	case frame := <-f.incoming:
		return frame, nil
	case <-f.closed:
		return Frame{}, errors.New("transport closed")
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) sentOfType(typ string) []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Frame
	for _, frame := range f.sent {
		if frame.Type == typ {
			out = append(out, frame)
		}
	}
	return out
}

type memAuth struct {
	mu    sync.Mutex
	saved []Session
}

func (s *memAuth) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, sess)
	return nil
}

type recordedResult struct {
	gameID  string
	result  string
	timeout bool
}

type memResults struct {
	mu      sync.Mutex
	records []recordedResult
}

func (s *memResults) Record(ctx context.Context, gameID, result string, timeout bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recordedResult{gameID: gameID, result: result, timeout: timeout})
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SearchTime = 200 * time.Millisecond
	cfg.HeartbeatInterval = time.Hour
	cfg.HeartbeatTimeout = time.Hour
	cfg.WatchdogInterval = time.Hour
	cfg.MatchWait = time.Second
	cfg.SyncWait = time.Second
	cfg.QueueRetryDelay = time.Millisecond
	cfg.ReconnectBase = time.Millisecond
	cfg.ReconnectAttempts = 3
	return cfg
}

const (
	scholarsFEN      = "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5Q2/PPPP1PPP/RNB1K1NR w KQkq - 4 4"
	scholarsMatedFEN = "r1bqkbnr/pppp1Qpp/2n5/4p3/2B1P3/8/PPPP1PPP/RNB1K1NR b KQkq - 0 4"
)

func TestRunFullGame(t *testing.T) {
	// The server matches us as white in a position with a mate in one. The
	// client must queue, accept the match, sync the board, find the mating
	// move and record the win.
	respond := func(frame Frame) []Frame {
		switch frame.Type {
		case "join_queue":
			return []Frame{{
				Type:          "match_found",
				GameID:        "g1",
				PlayerID:      "p1",
				AuthToken:     "tok",
				AssignedColor: "white",
				FirstMove:     "white",
			}}
		case "get_board":
			return []Frame{{
				Type:        "board_state",
				FEN:         scholarsFEN,
				CurrentTurn: "white",
			}}
		case "make_move":
			return []Frame{{
				Type:           "move_made",
				FEN:            scholarsMatedFEN,
				GameOver:       true,
				GameOverReason: "checkmate",
			}}
		}
		return nil
	}
	transport := newFakeTransport(respond)
	dial := func(ctx context.Context) (Transport, error) { return transport, nil }

	auth := &memAuth{}
	results := &memResults{}
	c := New(dial, searcher.NewMinimax(),
		WithConfig(testConfig()),
		WithLogger(zerolog.Nop()),
		WithAuthStore(auth),
		WithResultStore(results))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	require.Equal(t, StateGameOver, c.State())

	require.Len(t, auth.saved, 1, "the session must be persisted on match")
	require.Equal(t, "g1", auth.saved[0].GameID)
	require.Equal(t, game.White, auth.saved[0].Color)

	moves := transport.sentOfType("make_move")
	require.Len(t, moves, 1)
	require.Contains(t, moves[0].Data.Move, "xf7", "the mate in one must be played")
	require.Equal(t, "tok", moves[0].Data.AuthToken)

	require.Len(t, results.records, 1)
	require.Equal(t, recordedResult{gameID: "g1", result: "win", timeout: false}, results.records[0])
}

func TestRunDisqualification(t *testing.T) {
	// The final frame carries status "disqualified" with no winner field;
	// classification must key on the status and the disqualified player,
	// and the timeout tag must follow who was disqualified.
	runGameEndingWith := func(t *testing.T, final Frame) *memResults {
		t.Helper()
		respond := func(frame Frame) []Frame {
			if frame.Type == "get_board" {
				return []Frame{
					{Type: "board_state", FEN: game.Starting().FEN(), CurrentTurn: "black"},
					final,
				}
			}
			return nil
		}
		transport := newFakeTransport(respond)
		dial := func(ctx context.Context) (Transport, error) { return transport, nil }

		results := &memResults{}
		c := New(dial, searcher.NewMinimax(),
			WithConfig(testConfig()),
			WithLogger(zerolog.Nop()),
			WithResultStore(results),
			WithSession(Session{GameID: "g2", PlayerID: "p1", Color: game.White, AuthToken: "tok"}))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, c.Run(ctx))
		require.Len(t, results.records, 1)
		return results
	}

	t.Run("opponent disqualified is a win without a timeout tag", func(t *testing.T) {
		results := runGameEndingWith(t, Frame{
			Type:               "game_over",
			Status:             "disqualified",
			Reason:             "time limit exceeded",
			DisqualifiedPlayer: "opponent",
		})
		require.Equal(t, recordedResult{gameID: "g2", result: "win", timeout: false}, results.records[0])
	})

	t.Run("our disqualification over time is a loss tagged as a timeout", func(t *testing.T) {
		results := runGameEndingWith(t, Frame{
			Type:               "game_over",
			Status:             "disqualified",
			Reason:             "time limit exceeded",
			DisqualifiedPlayer: "p1",
		})
		require.Equal(t, recordedResult{gameID: "g2", result: "loss", timeout: true}, results.records[0])
	})

	t.Run("forfeit is settled by the winner field", func(t *testing.T) {
		results := runGameEndingWith(t, Frame{
			Type:   "game_over",
			Status: "forfeit",
			Winner: "p1",
		})
		require.Equal(t, recordedResult{gameID: "g2", result: "win", timeout: false}, results.records[0])
	})
}

func TestRunRecoversFromCancelledSync(t *testing.T) {
	// The first sync attempt is refused with a recoverable error. The
	// client must reconnect exactly once and finish the game on the new
	// transport.
	var mu sync.Mutex
	dials := 0

	okRespond := func(frame Frame) []Frame {
		if frame.Type == "get_board" {
			return []Frame{
				{Type: "board_state", FEN: game.Starting().FEN(), CurrentTurn: "black"},
				{Type: "game_over", Reason: "draw agreed"},
			}
		}
		return nil
	}
	failRespond := func(frame Frame) []Frame {
		if frame.Type == "get_board" {
			return []Frame{{Type: "error", Message: "Game cancelled, opponent not responding"}}
		}
		return nil
	}

	dial := func(ctx context.Context) (Transport, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		if dials == 1 {
			return newFakeTransport(failRespond), nil
		}
		return newFakeTransport(okRespond), nil
	}

	results := &memResults{}
	c := New(dial, searcher.NewMinimax(),
		WithConfig(testConfig()),
		WithLogger(zerolog.Nop()),
		WithResultStore(results),
		WithSession(Session{GameID: "g3", PlayerID: "p1", Color: game.White, AuthToken: "tok"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))

	mu.Lock()
	require.Equal(t, 2, dials, "one failed sync should cost exactly one reconnection")
	mu.Unlock()

	require.Len(t, results.records, 1)
	require.Equal(t, recordedResult{gameID: "g3", result: "draw", timeout: false}, results.records[0])
}
