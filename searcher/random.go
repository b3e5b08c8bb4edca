package searcher

import (
	"time"

	"arena/game"

	"golang.org/x/exp/rand"
)

// Random picks a uniformly random legal move. Useful as a baseline opponent
// and for exercising the client without burning search time.
type Random struct{}

func NewRandom() *Random {
	return &Random{}
}

func (Random) ChooseMove(_ *game.Position, legalMoves []game.Move, _ game.Color, _ time.Duration) (game.Move, error) {
	if len(legalMoves) == 0 {
		return "", ErrNoLegalMoves
	}
	return legalMoves[rand.Intn(len(legalMoves))], nil
}
