package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// warningGrace is how many consecutive warnings the watchdog tolerates past
// the full timeout before it declares the connection dead.
const warningGrace = 3

// LivenessMonitor detects silently broken connections. It runs two
// independently scheduled duties against a shared ConnectionHealth: a
// heartbeat emitter and a watchdog that escalates from warnings, to revival
// probes, to a forced transport close.
type LivenessMonitor struct {
	health        *ConnectionHealth
	interval      time.Duration // heartbeat period
	timeout       time.Duration // inactivity budget
	checkInterval time.Duration // watchdog wakeup period
	probe         func(ctx context.Context) error
	onDead        func()
	logger        zerolog.Logger
}

func newLivenessMonitor(health *ConnectionHealth, interval, timeout, checkInterval time.Duration,
	probe func(ctx context.Context) error, onDead func(), logger zerolog.Logger) *LivenessMonitor {
	return &LivenessMonitor{
		health:        health,
		interval:      interval,
		timeout:       timeout,
		checkInterval: checkInterval,
		probe:         probe,
		onDead:        onDead,
		logger:        logger,
	}
}

// RunHeartbeat emits a probe every interval. A failed send means the
// transport is already broken; recovery belongs to the watchdog, so the
// emitter just stops.
func (m *LivenessMonitor) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.health.Enabled() {
				return
			}
			if err := m.probe(ctx); err != nil {
				m.logger.Debug().Err(err).Msg("heartbeat send failed, emitter stopping")
				return
			}
		}
	}
}

// RunWatchdog checks inactivity every checkInterval. Past 70% of the timeout
// it warns; past the full timeout it first tries revival probes, then after
// warningGrace consecutive warnings disables monitoring and force-closes the
// transport, which the controller observes as a lost connection.
func (m *LivenessMonitor) RunWatchdog(ctx context.Context) {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.health.Enabled() {
				return
			}
			if m.check(ctx) {
				return
			}
		}
	}
}

// check runs one watchdog pass and reports whether the connection was
// declared dead.
func (m *LivenessMonitor) check(ctx context.Context) bool {
	elapsed := m.health.SinceActivity()
	if elapsed <= m.timeout*7/10 {
		m.health.ResetWarnings()
		return false
	}

	warnings := m.health.AddWarning()
	m.logger.Warn().
		Dur("elapsed", elapsed).
		Int("warnings", warnings).
		Msg("no activity from server")

	if elapsed <= m.timeout {
		return false
	}
	if warnings < warningGrace {
		// One more chance: an out-of-band probe may still revive the link.
		if err := m.probe(ctx); err != nil {
			m.logger.Debug().Err(err).Msg("revival probe failed")
		}
		return false
	}

	m.logger.Error().Dur("elapsed", elapsed).Msg("connection timed out, forcing reconnect")
	m.health.Disable()
	m.onDead()
	return true
}
