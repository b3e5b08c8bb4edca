package client

import (
	"sync"
	"time"
)

// ConnectionHealth tracks inbound activity. The receive loop touches it on
// every frame; the liveness watchdog reads it and escalates warnings. A
// fresh instance is created for every (re)connection.
type ConnectionHealth struct {
	mu           sync.Mutex
	lastActivity time.Time
	warnings     int
	enabled      bool
}

func newConnectionHealth() *ConnectionHealth {
	return &ConnectionHealth{
		lastActivity: time.Now(),
		enabled:      true,
	}
}

// Touch records inbound activity. The activity timestamp never moves
// backwards.
func (h *ConnectionHealth) Touch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if now := time.Now(); now.After(h.lastActivity) {
		h.lastActivity = now
	}
}

// SinceActivity returns the time elapsed since the last inbound frame.
func (h *ConnectionHealth) SinceActivity() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Since(h.lastActivity)
}

// Enabled reports whether monitoring is still active.
func (h *ConnectionHealth) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// Disable turns monitoring off; used once the watchdog decides the
// connection is dead.
func (h *ConnectionHealth) Disable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = false
}

// AddWarning increments and returns the consecutive-warning count.
func (h *ConnectionHealth) AddWarning() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warnings++
	return h.warnings
}

// ResetWarnings clears the consecutive-warning count.
func (h *ConnectionHealth) ResetWarnings() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warnings = 0
}

// Warnings returns the current consecutive-warning count.
func (h *ConnectionHealth) Warnings() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.warnings
}
