package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Totals aggregates recorded outcomes. Timeouts counts losses attributed to
// exceeding the time budget; those games are counted in Losses too.
type Totals struct {
	Wins     int
	Losses   int
	Draws    int
	Timeouts int
}

func (t Totals) Games() int {
	return t.Wins + t.Losses + t.Draws
}

// ResultStore keeps one row per finished game in SQLite. Recording the same
// game twice is a no-op, so a reconnect replaying a game_over cannot double
// count.
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(dbPath string) (*ResultStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &ResultStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *ResultStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS game_results (
		game_id     TEXT PRIMARY KEY,
		result      TEXT NOT NULL CHECK (result IN ('win', 'loss', 'draw')),
		timeout     INTEGER NOT NULL DEFAULT 0,
		recorded_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record stores the outcome of one game. The first write per game id wins.
func (s *ResultStore) Record(ctx context.Context, gameID, result string, timeout bool) error {
	query := `
	INSERT INTO game_results (game_id, result, timeout, recorded_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(game_id) DO NOTHING`

	timedOut := 0
	if timeout {
		timedOut = 1
	}
	if _, err := s.db.ExecContext(ctx, query, gameID, result, timedOut, time.Now().Unix()); err != nil {
		return fmt.Errorf("record result for %s: %w", gameID, err)
	}
	return nil
}

// Totals reads the aggregate standings.
func (s *ResultStore) Totals(ctx context.Context) (Totals, error) {
	query := `
	SELECT
		COUNT(CASE WHEN result = 'win'  THEN 1 END),
		COUNT(CASE WHEN result = 'loss' THEN 1 END),
		COUNT(CASE WHEN result = 'draw' THEN 1 END),
		COUNT(CASE WHEN timeout = 1     THEN 1 END)
	FROM game_results`

	var t Totals
	row := s.db.QueryRowContext(ctx, query)
	if err := row.Scan(&t.Wins, &t.Losses, &t.Draws, &t.Timeouts); err != nil {
		return Totals{}, fmt.Errorf("scan totals: %w", err)
	}
	return t, nil
}

func (s *ResultStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
