// Package store persists session credentials and game results between runs.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AuthRecord is the saved identity for one game, enough to reconnect and
// keep playing as the same player.
type AuthRecord struct {
	GameID      string `json:"game_id"`
	PlayerID    string `json:"player_id"`
	PlayerColor string `json:"player_color"`
	AuthToken   string `json:"auth_token"`
}

// AuthFile reads and writes an AuthRecord as JSON at a fixed path.
type AuthFile struct {
	path string
}

func NewAuthFile(path string) *AuthFile {
	return &AuthFile{path: path}
}

// Save writes the record, creating parent directories as needed.
func (f *AuthFile) Save(rec AuthRecord) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create auth directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode auth record: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write auth file: %w", err)
	}
	return nil
}

// Load reads and validates the saved record. A missing or incomplete file
// is an error: resuming without full credentials cannot work.
func (f *AuthFile) Load() (AuthRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return AuthRecord{}, fmt.Errorf("read auth file: %w", err)
	}
	var rec AuthRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return AuthRecord{}, fmt.Errorf("parse auth file %s: %w", f.path, err)
	}
	switch {
	case rec.GameID == "":
		return AuthRecord{}, fmt.Errorf("auth file %s is missing game_id", f.path)
	case rec.PlayerID == "":
		return AuthRecord{}, fmt.Errorf("auth file %s is missing player_id", f.path)
	case rec.PlayerColor == "":
		return AuthRecord{}, fmt.Errorf("auth file %s is missing player_color", f.path)
	case rec.AuthToken == "":
		return AuthRecord{}, fmt.Errorf("auth file %s is missing auth_token", f.path)
	}
	return rec, nil
}
