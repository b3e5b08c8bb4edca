// Arena chess client: queues for a match, plays it with the configured
// strategy and records the outcome.
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

	"arena/client"
	"arena/config"
	"arena/game"
	"arena/searcher"
	"arena/store"
)

// authAdapter bridges the client's session callback to the auth file.
type authAdapter struct {
	file *store.AuthFile
}

func (a authAdapter) Save(s client.Session) error {
	return a.file.Save(store.AuthRecord{
		GameID:      s.GameID,
		PlayerID:    s.PlayerID,
		PlayerColor: string(s.Color),
		AuthToken:   s.AuthToken,
	})
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	host := flag.String("host", cfg.ServerHost, "arena server host")
	port := flag.String("port", cfg.ServerPort, "arena server port")
	strategyName := flag.String("strategy", cfg.Strategy, "move strategy to play with")
	searchTime := flag.Duration("search-time", cfg.SearchTime, "time budget per move")
	authFile := flag.String("auth-file", cfg.AuthFile, "path for saved session credentials")
	dbPath := flag.String("db", cfg.DBPath, "path for the results database")
	resume := flag.Bool("continue", false, "resume the game saved in the auth file")
	debug := flag.Bool("debug", cfg.Debug, "enable debug logging")
	flag.Parse()

	cfg.ServerHost = *host
	cfg.ServerPort = *port
	cfg.Strategy = *strategyName
	cfg.SearchTime = *searchTime
	cfg.AuthFile = *authFile
	cfg.DBPath = *dbPath
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	strategy, err := searcher.New(cfg.Strategy)
	if err != nil {
		log.Fatal().Err(err).Msg("unknown strategy")
	}

	results, err := store.NewResultStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open results database")
	}
	defer func() {
		if err := results.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close results database")
		}
	}()

	auth := store.NewAuthFile(cfg.AuthFile)

	options := []client.Option{
		client.WithConfig(client.Config{
			SearchTime:        cfg.SearchTime,
			HeartbeatInterval: cfg.HeartbeatInterval,
			HeartbeatTimeout:  cfg.HeartbeatTimeout,
			WatchdogInterval:  cfg.WatchdogInterval,
			MatchWait:         cfg.MatchWait,
			MatchWaitFactor:   cfg.MatchWaitFactor,
			MatchWaitCap:      cfg.MatchWaitCap,
			MatchRetries:      cfg.MatchRetries,
			QueueRetryDelay:   cfg.QueueRetryDelay,
			SyncWait:          cfg.SyncWait,
			ReconnectBase:     cfg.ReconnectBase,
			ReconnectAttempts: cfg.ReconnectAttempts,
			Aggressive:        cfg.AggressiveReconnect,
		}),
		client.WithAuthStore(authAdapter{file: auth}),
		client.WithResultStore(results),
	}

	if *resume {
		rec, err := auth.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("cannot resume: no usable saved session")
		}
		options = append(options, client.WithSession(client.Session{
			GameID:    rec.GameID,
			PlayerID:  rec.PlayerID,
			Color:     game.Color(rec.PlayerColor),
			AuthToken: rec.AuthToken,
		}))
	}

	c := client.New(client.DialWebsocket(cfg.ServerURL()), strategy, options...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("server", cfg.ServerURL()).
		Str("strategy", cfg.Strategy).
		Dur("search_time", cfg.SearchTime).
		Msg("starting arena client")

	if err := c.Run(ctx); err != nil {
		log.Error().Err(err).Msg("session ended with an error")
		os.Exit(1)
	}

	totals, err := results.Totals(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read standings")
		return
	}
	log.Info().
		Int("wins", totals.Wins).
		Int("losses", totals.Losses).
		Int("draws", totals.Draws).
		Int("timeouts", totals.Timeouts).
		Msgf("standings after %d games", totals.Games())
}
