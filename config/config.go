// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the arena binaries read from the environment.
// Command line flags may override individual fields afterwards.
type Config struct {
	ServerHost string
	ServerPort string

	Strategy   string
	SearchTime time.Duration

	AuthFile string
	DBPath   string

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	WatchdogInterval  time.Duration

	MatchWait       time.Duration
	MatchWaitFactor float64
	MatchWaitCap    time.Duration
	MatchRetries    int
	QueueRetryDelay time.Duration

	SyncWait time.Duration

	ReconnectBase       time.Duration
	ReconnectAttempts   int
	AggressiveReconnect bool

	Debug bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerHost: getEnv("ARENA_HOST", "localhost"),
		ServerPort: getEnv("ARENA_PORT", "8765"),

		Strategy:   getEnv("ARENA_STRATEGY", "minimax"),
		SearchTime: getEnvDuration("ARENA_SEARCH_TIME", 300*time.Second),

		AuthFile: getEnv("ARENA_AUTH_FILE", "./data/auth.json"),
		DBPath:   getEnv("ARENA_DB_PATH", "./data/results.db"),

		HeartbeatInterval: getEnvDuration("ARENA_HEARTBEAT_INTERVAL", 15*time.Second),
		HeartbeatTimeout:  getEnvDuration("ARENA_HEARTBEAT_TIMEOUT", 60*time.Second),
		WatchdogInterval:  getEnvDuration("ARENA_WATCHDOG_INTERVAL", 5*time.Second),

		MatchWait:       getEnvDuration("ARENA_MATCH_WAIT", 30*time.Second),
		MatchWaitFactor: 1.5,
		MatchWaitCap:    getEnvDuration("ARENA_MATCH_WAIT_CAP", 2*time.Minute),
		MatchRetries:    getEnvInt("ARENA_MATCH_RETRIES", 10),
		QueueRetryDelay: getEnvDuration("ARENA_QUEUE_RETRY_DELAY", time.Second),

		SyncWait: getEnvDuration("ARENA_SYNC_WAIT", 30*time.Second),

		ReconnectBase:       getEnvDuration("ARENA_RECONNECT_BASE", time.Second),
		ReconnectAttempts:   getEnvInt("ARENA_RECONNECT_ATTEMPTS", 5),
		AggressiveReconnect: getEnvBool("ARENA_RECONNECT_AGGRESSIVE", false),

		Debug: getEnvBool("ARENA_DEBUG", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are usable.
func (c *Config) Validate() error {
	if c.ServerHost == "" {
		return fmt.Errorf("ARENA_HOST cannot be empty")
	}
	if c.ServerPort == "" {
		return fmt.Errorf("ARENA_PORT cannot be empty")
	}
	if c.SearchTime <= 0 {
		return fmt.Errorf("ARENA_SEARCH_TIME must be positive")
	}
	if c.HeartbeatInterval <= 0 || c.HeartbeatTimeout <= 0 || c.WatchdogInterval <= 0 {
		return fmt.Errorf("heartbeat intervals must be positive")
	}
	if c.HeartbeatTimeout <= c.HeartbeatInterval {
		return fmt.Errorf("ARENA_HEARTBEAT_TIMEOUT must exceed ARENA_HEARTBEAT_INTERVAL")
	}
	if c.MatchRetries <= 0 {
		return fmt.Errorf("ARENA_MATCH_RETRIES must be positive")
	}
	if c.ReconnectBase <= 0 || c.ReconnectAttempts <= 0 {
		return fmt.Errorf("reconnect settings must be positive")
	}
	return nil
}

// ServerURL is the websocket endpoint of the arena server.
func (c *Config) ServerURL() string {
	return fmt.Sprintf("ws://%s:%s/ws", c.ServerHost, c.ServerPort)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v := strings.TrimSpace(value)
	// Plain numbers are treated as seconds for compatibility with older
	// deployments.
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
