package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"arena/game"
	"arena/searcher"
)

var errGameCancelled = errors.New("game cancelled by server")

// Client drives a single game against the arena server: it queues for a
// match (or resumes a saved one), keeps the board in sync, runs the strategy
// on its turns, and survives connection loss by reconnecting and resyncing.
type Client struct {
	cfg      Config
	dial     Dialer
	strategy searcher.Strategy
	logger   zerolog.Logger

	auth    AuthStore
	results ResultStore

	transport Transport
	inbox     *inbox
	health    *ConnectionHealth
	backoff   *Backoff

	// cancels the receive loop, heartbeat and watchdog of the current
	// transport; reset on every (re)connect.
	stopActivities context.CancelFunc

	session   *Session
	board     *game.Position
	state     State
	moveCount int

	budgetExceeded bool
	timedOut       bool
}

type Option func(*Client)

func WithConfig(cfg Config) Option {
	return func(c *Client) { c.cfg = cfg }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithAuthStore(s AuthStore) Option {
	return func(c *Client) { c.auth = s }
}

func WithResultStore(s ResultStore) Option {
	return func(c *Client) { c.results = s }
}

// WithSession resumes a previously saved game instead of queuing for a new
// one.
func WithSession(s Session) Option {
	return func(c *Client) { c.session = &s }
}

func New(dial Dialer, strategy searcher.Strategy, options ...Option) *Client {
	c := &Client{
		cfg:      DefaultConfig(),
		dial:     dial,
		strategy: strategy,
		logger:   zlog.Logger,
		board:    game.Starting(),
		state:    StateIdle,
	}
	for _, opt := range options {
		opt(c)
	}
	c.backoff = NewBackoff(c.cfg.ReconnectBase, c.cfg.ReconnectAttempts, c.cfg.Aggressive)
	return c
}

// State reports the current session state.
func (c *Client) State() State { return c.state }

// Run plays one game to completion. It returns nil once the game is over
// and the outcome recorded, or an error when the session cannot continue
// (retries exhausted, context cancelled, unrecoverable server response).
func (c *Client) Run(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer c.teardown()

	if c.session != nil {
		c.setState(StateMatched)
		c.logger.Info().Str("game_id", c.session.GameID).Msgf("resuming saved game as %s", c.session.Color)
	} else {
		if err := c.startMatchmaking(ctx); err != nil {
			return err
		}
	}

	ourTurn, err := c.syncBoard(ctx)
	if err != nil {
		ourTurn, err = c.recover(ctx, err)
		if err != nil {
			return err
		}
	}

	return c.gameLoop(ctx, ourTurn)
}

// connect opens a transport and starts the three concurrent activities
// around it: the receive loop, the heartbeat sender and the liveness
// watchdog.
func (c *Client) connect(ctx context.Context) error {
	t, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.transport = t
	c.inbox = newInbox(64)
	c.health = newConnectionHealth()

	bg, cancel := context.WithCancel(ctx)
	c.stopActivities = cancel

	probe := func(pctx context.Context) error {
		return t.Send(pctx, Frame{Type: "health_check"})
	}
	onDead := func() {
		// Unblocks any pending Receive so the consumer sees the loss.
		_ = t.Close()
	}
	monitor := newLivenessMonitor(c.health, c.cfg.HeartbeatInterval, c.cfg.HeartbeatTimeout,
		c.cfg.WatchdogInterval, probe, onDead, c.logger)

	go c.receiveLoop(bg, t, c.inbox)
	go monitor.RunHeartbeat(bg)
	go monitor.RunWatchdog(bg)
	return nil
}

func (c *Client) teardown() {
	if c.stopActivities != nil {
		c.stopActivities()
		c.stopActivities = nil
	}
	if c.transport != nil {
		_ = c.transport.Close()
		c.transport = nil
	}
}

// receiveLoop is the only reader of the transport. Pings are answered
// inline so liveness works even while the main loop is busy searching.
func (c *Client) receiveLoop(ctx context.Context, t Transport, q *inbox) {
	defer q.close()
	for {
		frame, err := t.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn().Err(err).Msg("receive loop terminated")
			}
			return
		}
		c.health.Touch()
		switch frame.Type {
		case "ping":
			if err := t.Send(ctx, Frame{Type: "pong"}); err != nil {
				c.logger.Warn().Err(err).Msg("failed to answer ping")
			}
		case "pong":
			// Activity already noted above.
		default:
			q.put(ctx, frame)
		}
	}
}

func (c *Client) startMatchmaking(ctx context.Context) error {
	c.setState(StateQueuing)
	if err := c.transport.Send(ctx, Frame{Type: "join_queue"}); err != nil {
		return fmt.Errorf("join queue: %w", err)
	}
	c.logger.Info().Msg("joined matchmaking queue")

	wait := c.cfg.MatchWait
	retries := 0
	for retries < c.cfg.MatchRetries {
		frame, err := c.inbox.take(ctx, wait)
		switch {
		case err == nil:
		case errors.Is(err, errWaitTimeout):
			retries++
			wait = time.Duration(float64(wait) * c.cfg.MatchWaitFactor)
			if wait > c.cfg.MatchWaitCap {
				wait = c.cfg.MatchWaitCap
			}
			c.logger.Info().Msgf("no match within wait window, retry %d/%d with window %s", retries, c.cfg.MatchRetries, wait)
			if err := c.transport.Send(ctx, Frame{Type: "join_queue"}); err != nil {
				return fmt.Errorf("rejoin queue: %w", err)
			}
			continue
		default:
			return fmt.Errorf("waiting for match: %w", err)
		}

		switch frame.Type {
		case "match_found":
			return c.acceptMatch(frame)
		case "queue_timeout":
			retries++
			c.logger.Info().Msgf("server timed the queue out, retry %d/%d", retries, c.cfg.MatchRetries)
			select {
			case <-time.After(c.cfg.QueueRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := c.transport.Send(ctx, Frame{Type: "join_queue"}); err != nil {
				return fmt.Errorf("rejoin queue: %w", err)
			}
		default:
			c.inbox.park(frame)
		}
	}
	return fmt.Errorf("no match after %d attempts", c.cfg.MatchRetries)
}

func (c *Client) acceptMatch(frame Frame) error {
	c.session = &Session{
		GameID:    frame.GameID,
		PlayerID:  frame.PlayerID,
		Color:     game.Color(frame.AssignedColor),
		AuthToken: frame.AuthToken,
	}
	c.setState(StateMatched)
	c.logger.Info().Str("game_id", frame.GameID).Msgf("matched as %s, %s moves first", frame.AssignedColor, frame.FirstMove)

	if frame.ServerSearchTime > 0 {
		server := time.Duration(frame.ServerSearchTime * float64(time.Second))
		if c.cfg.SearchTime > server {
			c.logger.Warn().Msgf("server caps search time at %s, clamping from %s", server, c.cfg.SearchTime)
			c.cfg.SearchTime = server
		} else if c.cfg.SearchTime < server {
			c.logger.Warn().Msgf("search time %s below server limit %s", c.cfg.SearchTime, server)
		}
	}

	if c.auth != nil {
		if err := c.auth.Save(*c.session); err != nil {
			c.logger.Warn().Err(err).Msg("failed to persist session")
		}
	}
	return nil
}

// syncBoard asks the server for the authoritative position and reports
// whether it is our turn. A "cancelled" or "not responding" error from the
// server is recoverable; anything else it reports ends the session.
func (c *Client) syncBoard(ctx context.Context) (bool, error) {
	c.setState(StateSyncing)
	req := Frame{
		Type:      "get_board",
		GameID:    c.session.GameID,
		PlayerID:  c.session.PlayerID,
		AuthToken: c.session.AuthToken,
	}
	if err := c.transport.Send(ctx, req); err != nil {
		return false, fmt.Errorf("request board: %w", err)
	}

	for {
		frame, err := c.inbox.take(ctx, c.cfg.SyncWait)
		if err != nil {
			return false, fmt.Errorf("waiting for board state: %w", err)
		}
		switch frame.Type {
		case "board_state":
			pos, err := game.Decode(frame.FEN)
			if err != nil {
				return false, fmt.Errorf("server sent bad position: %w", err)
			}
			c.board = pos
			ourTurn := game.Color(frame.CurrentTurn) == c.session.Color
			c.logger.Info().Msgf("board synced, %s to move", frame.CurrentTurn)
			return ourTurn, nil
		case "error":
			if isRecoverableSyncError(frame.Message) {
				return false, fmt.Errorf("%w: %s", errGameCancelled, frame.Message)
			}
			return false, fmt.Errorf("server refused board sync: %s", frame.Message)
		default:
			c.inbox.park(frame)
		}
	}
}

func isRecoverableSyncError(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "cancelled") || strings.Contains(m, "not responding")
}

// recover runs the reconnect cycle until a resync succeeds or the backoff
// gives up. It returns whether it is our turn after the resync.
func (c *Client) recover(ctx context.Context, cause error) (bool, error) {
	c.logger.Warn().Err(cause).Msg("session interrupted, attempting recovery")
	for {
		ourTurn, err := c.reconnectAndResync(ctx)
		switch {
		case err == nil:
			return ourTurn, nil
		case errors.Is(err, ErrRetriesExhausted):
			return false, fmt.Errorf("recovery failed after %w: %v", ErrRetriesExhausted, cause)
		case ctx.Err() != nil:
			return false, ctx.Err()
		default:
			c.logger.Warn().Err(err).Msg("reconnect attempt failed")
		}
	}
}

func (c *Client) reconnectAndResync(ctx context.Context) (bool, error) {
	delay, err := c.backoff.Next()
	if err != nil {
		return false, err
	}
	c.setState(StateReconnecting)
	c.logger.Info().Msgf("reconnecting in %s (attempt %d)", delay, c.backoff.Attempt())
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	c.teardown()
	if err := c.connect(ctx); err != nil {
		return false, fmt.Errorf("redial: %w", err)
	}
	ourTurn, err := c.syncBoard(ctx)
	if err != nil {
		return false, err
	}
	c.backoff.Reset()
	return ourTurn, nil
}

func (c *Client) gameLoop(ctx context.Context, ourTurn bool) error {
	pending := ourTurn
	for c.state != StateGameOver {
		var err error
		if pending {
			pending = false
			err = c.playTurn(ctx)
		} else {
			frame, ok := c.inbox.replay()
			if !ok {
				frame, err = c.inbox.take(ctx, 0)
			}
			if err == nil {
				pending, err = c.handle(ctx, frame)
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.state == StateGameOver {
				return nil
			}
			if errors.Is(err, searcher.ErrNoLegalMoves) || errors.Is(err, errGameCancelled) {
				return err
			}
			pending, err = c.recover(ctx, err)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// playTurn runs the strategy on its own goroutine so the receive loop and
// heartbeat are never starved by a long search, then submits the move.
func (c *Client) playTurn(ctx context.Context) error {
	c.setState(StateToMove)
	legal := c.board.LegalMoves()
	if len(legal) == 0 {
		// The server has not told us yet, but the game is decided.
		switch c.board.Status() {
		case game.Checkmate:
			c.recordOutcome(ctx, "loss")
		default:
			c.recordOutcome(ctx, "draw")
		}
		c.setState(StateGameOver)
		return nil
	}

	type answer struct {
		move game.Move
		err  error
	}
	results := make(chan answer, 1)
	start := time.Now()
	go func() {
		m, err := c.strategy.ChooseMove(c.board, legal, c.session.Color, c.cfg.SearchTime)
		results <- answer{move: m, err: err}
	}()

	var chosen game.Move
	select {
	case a := <-results:
		if a.err != nil {
			return fmt.Errorf("choose move: %w", a.err)
		}
		chosen = a.move
	case <-ctx.Done():
		return ctx.Err()
	}

	elapsed := time.Since(start)
	if elapsed > c.cfg.SearchTime {
		c.budgetExceeded = true
		c.logger.Warn().Msgf("search took %s, over the %s budget", elapsed, c.cfg.SearchTime)
	}
	c.moveCount++
	c.logger.Info().Msgf("move %d: playing %s after %s", c.moveCount, chosen, elapsed.Round(time.Millisecond))

	frame := Frame{
		Type: "make_move",
		Data: &MoveData{
			GameID:    c.session.GameID,
			PlayerID:  c.session.PlayerID,
			AuthToken: c.session.AuthToken,
			Move:      string(chosen),
		},
	}
	if err := c.transport.Send(ctx, frame); err != nil {
		return fmt.Errorf("submit move: %w", err)
	}
	c.setState(StateWaitingOpponent)
	return nil
}

// handle processes one server frame and reports whether it is now our turn.
func (c *Client) handle(ctx context.Context, frame Frame) (bool, error) {
	switch frame.Type {
	case "move_made":
		pos, err := game.Decode(frame.FEN)
		if err != nil {
			return false, fmt.Errorf("server sent bad position: %w", err)
		}
		c.board = pos
		c.logger.Debug().Msgf("board after move:\n%s", c.board.Diagram())
		if frame.GameOver {
			c.finishFromReason(ctx, frame.GameOverReason)
			return false, nil
		}
		if c.board.Terminal() {
			c.finishFromReason(ctx, "")
			return false, nil
		}
		if c.board.Turn() == c.session.Color {
			return true, nil
		}
		c.setState(StateWaitingOpponent)
		return false, nil
	case "opponent_disconnected":
		c.logger.Warn().Msg("opponent disconnected, waiting for their reconnect or forfeit")
		return false, nil
	case "game_over":
		c.finishFromServer(ctx, frame)
		return false, nil
	case "error":
		c.logger.Warn().Str("message", frame.Message).Msg("server reported an error")
		return false, nil
	default:
		c.logger.Debug().Str("type", frame.Type).Msg("ignoring unexpected frame")
		return false, nil
	}
}

// finishFromReason ends the game from the board position when the server
// only flags it as over, deducing the result from whose turn it is.
func (c *Client) finishFromReason(ctx context.Context, reason string) {
	r := strings.ToLower(reason)
	status := c.board.Status()
	switch {
	case strings.Contains(r, "checkmate") || status == game.Checkmate:
		if c.board.Turn() == c.session.Color {
			c.recordOutcome(ctx, "loss")
		} else {
			c.recordOutcome(ctx, "win")
		}
	default:
		c.recordOutcome(ctx, "draw")
	}
	c.setState(StateGameOver)
}

func (c *Client) finishFromServer(ctx context.Context, frame Frame) {
	switch strings.ToLower(frame.Status) {
	case "forfeit":
		if frame.Winner == c.session.PlayerID {
			c.logger.Info().Msg("opponent forfeited")
			c.recordOutcome(ctx, "win")
		} else {
			c.recordOutcome(ctx, "loss")
		}
	case "disqualified":
		if frame.DisqualifiedPlayer == c.session.PlayerID {
			c.timedOut = mentionsTimeout(frame.Reason)
			c.logger.Error().Str("reason", frame.Reason).Msg("we were disqualified")
			c.recordOutcome(ctx, "loss")
		} else {
			c.logger.Info().Str("reason", frame.Reason).Msg("opponent disqualified")
			c.recordOutcome(ctx, "win")
		}
	default:
		switch {
		case frame.Winner == c.session.PlayerID:
			c.recordOutcome(ctx, "win")
		case frame.Winner != "":
			c.recordOutcome(ctx, "loss")
		default:
			c.recordOutcome(ctx, "draw")
		}
	}
	c.setState(StateGameOver)
}

func (c *Client) recordOutcome(ctx context.Context, result string) {
	timeout := c.timedOut || (result == "loss" && c.budgetExceeded)
	c.logger.Info().Str("game_id", c.session.GameID).Bool("timeout", timeout).Msgf("game over: %s", result)
	if c.results == nil {
		return
	}
	if err := c.results.Record(ctx, c.session.GameID, result, timeout); err != nil {
		c.logger.Warn().Err(err).Msg("failed to record result")
	}
}

func mentionsTimeout(reason string) bool {
	return strings.Contains(strings.ToLower(reason), "time")
}

func (c *Client) setState(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug().Msgf("state %s -> %s", c.state, s)
	c.state = s
}
