// Package harness exercises a strategy offline against recorded positions,
// checking legality and the time budget without a server.
package harness

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"arena/game"
	"arena/searcher"
)

// timeoutGrace is added to the search budget before a case is counted as a
// timeout, so a strategy that returns just past its budget is not punished
// for scheduling noise.
const timeoutGrace = 100 * time.Millisecond

// Case is one recorded position, one JSON object per line in the input
// file.
type Case struct {
	FEN         string   `json:"fen"`
	LegalMoves  []string `json:"legal_moves"`
	PlayerColor string   `json:"player_color"`

	line int
}

// LoadCases reads a JSONL case file. Blank lines are skipped; a malformed
// line fails the whole load with its line number.
func LoadCases(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open case file: %w", err)
	}
	defer f.Close()

	var cases []Case
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var c Case
		if err := json.Unmarshal(text, &c); err != nil {
			return nil, fmt.Errorf("parse case at line %d: %w", line, err)
		}
		c.line = line
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}
	return cases, nil
}

// Sample returns n randomly chosen cases, or all of them when n is zero or
// exceeds the case count.
func Sample(cases []Case, n int) []Case {
	if n <= 0 || n >= len(cases) {
		return cases
	}
	shuffled := make([]Case, len(cases))
	copy(shuffled, cases)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// Report is the aggregate outcome of one harness run.
type Report struct {
	Passed     int  `json:"passed"`
	Failed     int  `json:"failed"`
	Timeouts   int  `json:"timeouts"`
	TotalTests int  `json:"total_tests"`
	Sampled    bool `json:"sampled"`
}

// Write stores the report as JSON.
func (r Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Runner drives a strategy through a set of cases.
type Runner struct {
	strategy searcher.Strategy
	budget   time.Duration
	logger   zerolog.Logger
}

func NewRunner(strategy searcher.Strategy, budget time.Duration) *Runner {
	return &Runner{
		strategy: strategy,
		budget:   budget,
		logger:   zlog.Logger,
	}
}

// Run plays every case and tallies the outcomes. A case passes when the
// strategy returns a legal move within the budget plus grace.
func (r *Runner) Run(ctx context.Context, cases []Case, sampled bool) Report {
	report := Report{TotalTests: len(cases), Sampled: sampled}
	for _, c := range cases {
		outcome := r.runCase(ctx, c)
		switch outcome {
		case casePassed:
			report.Passed++
		case caseTimedOut:
			report.Timeouts++
			report.Failed++
		default:
			report.Failed++
		}
		if ctx.Err() != nil {
			break
		}
	}
	r.logger.Info().
		Int("passed", report.Passed).
		Int("failed", report.Failed).
		Int("timeouts", report.Timeouts).
		Int("total", report.TotalTests).
		Msg("harness run complete")
	return report
}

type caseOutcome int

const (
	casePassed caseOutcome = iota
	caseFailed
	caseTimedOut
)

func (r *Runner) runCase(ctx context.Context, c Case) caseOutcome {
	pos, err := game.Decode(c.FEN)
	if err != nil {
		r.logger.Error().Err(err).Int("line", c.line).Msg("case has an invalid position")
		return caseFailed
	}
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		r.logger.Error().Int("line", c.line).Msg("case position has no legal moves")
		return caseFailed
	}
	side := game.Color(c.PlayerColor)
	if side == "" {
		side = pos.Turn()
	}

	type answer struct {
		move game.Move
		err  error
	}
	results := make(chan answer, 1)
	start := time.Now()
	go func() {
		m, err := r.strategy.ChooseMove(pos, legal, side, r.budget)
		results <- answer{move: m, err: err}
	}()

	timer := time.NewTimer(r.budget + timeoutGrace)
	defer timer.Stop()
	var a answer
	select {
	case a = <-results:
	case <-timer.C:
		r.logger.Warn().Int("line", c.line).Dur("budget", r.budget).Msg("strategy exceeded budget")
		return caseTimedOut
	case <-ctx.Done():
		return caseFailed
	}
	elapsed := time.Since(start)

	if a.err != nil {
		r.logger.Error().Err(a.err).Int("line", c.line).Msg("strategy failed")
		return caseFailed
	}
	if !contains(legal, a.move) {
		r.logger.Error().Int("line", c.line).Str("move", string(a.move)).Msg("strategy returned an illegal move")
		return caseFailed
	}
	if len(c.LegalMoves) > 0 && !containsString(c.LegalMoves, string(a.move)) {
		r.logger.Error().Int("line", c.line).Str("move", string(a.move)).Msg("move not in the case's expected legal set")
		return caseFailed
	}
	r.logger.Debug().Int("line", c.line).Str("move", string(a.move)).Dur("elapsed", elapsed).Msg("case passed")
	return casePassed
}

func contains(moves []game.Move, m game.Move) bool {
	for _, candidate := range moves {
		if candidate == m {
			return true
		}
	}
	return false
}

func containsString(moves []string, m string) bool {
	for _, candidate := range moves {
		if candidate == m {
			return true
		}
	}
	return false
}
