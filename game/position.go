package game

import (
	"fmt"

	"github.com/notnil/chess"
)

// Color of a side, in the vocabulary the arena server speaks.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Move is a single move in standard algebraic notation, e.g. "e4" or "Nxf7+".
type Move string

// Status classifies a position.
type Status int

const (
	InProgress Status = iota
	Checkmate
	Stalemate
	InsufficientMaterial
)

// Position wraps the rules library's position with the operations the rest of
// the client needs: legal move enumeration, application, move classification
// and terminal detection. Apply returns a fresh Position and leaves the
// receiver untouched, so a search can treat the parent as its undo point.
type Position struct {
	pos *chess.Position
}

// Starting returns the standard initial position.
func Starting() *Position {
	return &Position{pos: chess.StartingPosition()}
}

// Decode parses a FEN string.
func Decode(fen string) (*Position, error) {
	pos := &chess.Position{}
	if err := pos.UnmarshalText([]byte(fen)); err != nil {
		return nil, fmt.Errorf("decode fen %q: %w", fen, err)
	}
	return &Position{pos: pos}, nil
}

// FEN encodes the position back to its portable string form.
func (p *Position) FEN() string {
	return p.pos.String()
}

// Turn returns the side to move.
func (p *Position) Turn() Color {
	if p.pos.Turn() == chess.White {
		return White
	}
	return Black
}

// LegalMoves enumerates the legal moves in the rules library's generation
// order.
func (p *Position) LegalMoves() []Move {
	valid := p.pos.ValidMoves()
	notation := chess.AlgebraicNotation{}
	moves := make([]Move, len(valid))
	for i, m := range valid {
		moves[i] = Move(notation.Encode(p.pos, m))
	}
	return moves
}

func (p *Position) decode(m Move) (*chess.Move, error) {
	mv, err := chess.AlgebraicNotation{}.Decode(p.pos, string(m))
	if err != nil {
		return nil, fmt.Errorf("illegal move %q: %w", m, err)
	}
	return mv, nil
}

// Apply plays m and returns the resulting position. It fails if m is not
// legal in p.
func (p *Position) Apply(m Move) (*Position, error) {
	mv, err := p.decode(m)
	if err != nil {
		return nil, err
	}
	return &Position{pos: p.pos.Update(mv)}, nil
}

// IsCapture reports whether m takes a piece, en passant included.
func (p *Position) IsCapture(m Move) bool {
	mv, err := p.decode(m)
	if err != nil {
		return false
	}
	return mv.HasTag(chess.Capture) || mv.HasTag(chess.EnPassant)
}

// GivesCheck reports whether m checks the opposing king.
func (p *Position) GivesCheck(m Move) bool {
	mv, err := p.decode(m)
	if err != nil {
		return false
	}
	return mv.HasTag(chess.Check)
}

// Status classifies the position. When the side to move is checkmated that
// side is the loser (Turn() names it).
func (p *Position) Status() Status {
	switch p.pos.Status() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	}
	if p.insufficientMaterial() {
		return InsufficientMaterial
	}
	return InProgress
}

// Terminal reports whether the game is over in this position.
func (p *Position) Terminal() bool {
	return p.Status() != InProgress
}

// Board exposes the underlying board for evaluation and rendering.
func (p *Position) Board() *chess.Board {
	return p.pos.Board()
}

// Diagram renders the position as a text board for logging.
func (p *Position) Diagram() string {
	return p.pos.Board().Draw()
}

// insufficientMaterial covers the dead positions neither side can win: bare
// kings, king and one minor piece, or kings with bishops all on one square
// color.
func (p *Position) insufficientMaterial() bool {
	knights := 0
	var bishops []chess.Square
	for sq, piece := range p.pos.Board().SquareMap() {
		switch piece.Type() {
		case chess.King:
		case chess.Knight:
			knights++
		case chess.Bishop:
			bishops = append(bishops, sq)
		default:
			return false
		}
	}
	minors := knights + len(bishops)
	if minors <= 1 {
		return true
	}
	if knights > 0 {
		return false
	}
	shade := squareShade(bishops[0])
	for _, sq := range bishops[1:] {
		if squareShade(sq) != shade {
			return false
		}
	}
	return true
}

func squareShade(sq chess.Square) int {
	return (int(sq.Rank()) + int(sq.File())) % 2
}
