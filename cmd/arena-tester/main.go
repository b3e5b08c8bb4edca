// Arena tester: runs a strategy against a JSONL file of recorded positions
// and writes an aggregate report.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"arena/harness"
	"arena/searcher"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	casesPath := flag.String("cases", "cases.jsonl", "JSONL file of test positions")
	reportPath := flag.String("report", "test_result.json", "where to write the report")
	strategyName := flag.String("strategy", "minimax", "strategy under test")
	budget := flag.Duration("search-time", 5*time.Second, "time budget per position")
	sample := flag.Int("sample", 0, "test only this many randomly chosen positions (0 = all)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	strategy, err := searcher.New(*strategyName)
	if err != nil {
		log.Fatal().Err(err).Msg("unknown strategy")
	}

	cases, err := harness.LoadCases(*casesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load cases")
	}
	sampled := *sample > 0 && *sample < len(cases)
	cases = harness.Sample(cases, *sample)
	log.Info().Int("cases", len(cases)).Str("strategy", *strategyName).Msg("starting harness run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := harness.NewRunner(strategy, *budget).Run(ctx, cases, sampled)
	if err := report.Write(*reportPath); err != nil {
		log.Fatal().Err(err).Msg("failed to write report")
	}

	if report.Failed > 0 {
		os.Exit(1)
	}
}
