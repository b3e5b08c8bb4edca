package client

// Frame is the wire envelope for the arena server's JSON protocol. One
// struct covers every message type; fields not used by a given type stay
// empty and are omitted on the wire.
type Frame struct {
	Type string `json:"type"`

	// make_move payload (outbound only).
	Data *MoveData `json:"data,omitempty"`

	GameID    string `json:"game_id,omitempty"`
	PlayerID  string `json:"player_id,omitempty"`
	AuthToken string `json:"auth_token,omitempty"`

	// match_found
	AssignedColor    string  `json:"assigned_color,omitempty"`
	FirstMove        string  `json:"first_move,omitempty"`
	ServerSearchTime float64 `json:"server_search_time,omitempty"`

	// board_state and move_made
	FEN            string `json:"fen,omitempty"`
	CurrentTurn    string `json:"current_turn,omitempty"`
	GameOver       bool   `json:"game_over,omitempty"`
	GameOverReason string `json:"game_over_reason,omitempty"`

	// game_over and error (both use "message")
	Status             string `json:"status,omitempty"`
	Message            string `json:"message,omitempty"`
	Winner             string `json:"winner,omitempty"`
	DisqualifiedPlayer string `json:"disqualified_player,omitempty"`
	Reason             string `json:"reason,omitempty"`
}

// MoveData is the authenticated payload of a make_move frame.
type MoveData struct {
	GameID    string `json:"game_id"`
	PlayerID  string `json:"player_id"`
	AuthToken string `json:"auth_token"`
	Move      string `json:"move"`
}
