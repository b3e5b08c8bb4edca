package client

import (
	"context"
	"time"

	"arena/game"
)

// State of the session state machine.
type State int

const (
	StateIdle State = iota
	StateQueuing
	StateMatched
	StateSyncing
	StateToMove
	StateWaitingOpponent
	StateReconnecting
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQueuing:
		return "queuing"
	case StateMatched:
		return "matched"
	case StateSyncing:
		return "syncing"
	case StateToMove:
		return "to_move"
	case StateWaitingOpponent:
		return "waiting_opponent"
	case StateReconnecting:
		return "reconnecting"
	case StateGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Session identifies one game from the server's point of view. At most one
// session is active per controller.
type Session struct {
	GameID    string
	PlayerID  string
	Color     game.Color
	AuthToken string
}

// AuthStore persists the session for reconnect-as-continuation.
type AuthStore interface {
	Save(s Session) error
}

// ResultStore accumulates game outcomes, deduplicated per game id.
type ResultStore interface {
	Record(ctx context.Context, gameID, result string, timeout bool) error
}

// Config carries the controller's tunables. DefaultConfig matches the
// arena's conventional settings; cmd overrides from flags and environment.
type Config struct {
	SearchTime time.Duration

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	WatchdogInterval  time.Duration

	// Matchmaking: wait this long for a match, growing the window by
	// MatchWaitFactor (up to MatchWaitCap) on every local wait timeout.
	// Server-reported queue timeouts retry after QueueRetryDelay instead.
	MatchWait       time.Duration
	MatchWaitFactor float64
	MatchWaitCap    time.Duration
	MatchRetries    int
	QueueRetryDelay time.Duration

	SyncWait time.Duration

	ReconnectBase     time.Duration
	ReconnectAttempts int
	Aggressive        bool
}

func DefaultConfig() Config {
	return Config{
		SearchTime:        300 * time.Second,
		HeartbeatInterval: 15 * time.Second,
		HeartbeatTimeout:  60 * time.Second,
		WatchdogInterval:  5 * time.Second,
		MatchWait:         30 * time.Second,
		MatchWaitFactor:   1.5,
		MatchWaitCap:      2 * time.Minute,
		MatchRetries:      10,
		QueueRetryDelay:   time.Second,
		SyncWait:          30 * time.Second,
		ReconnectBase:     time.Second,
		ReconnectAttempts: 5,
		Aggressive:        false,
	}
}
