package searcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"arena/game"
)

// ErrNoLegalMoves reports an empty legal-move set. Callers are expected to
// detect a finished game before invoking a strategy, so hitting this is a
// configuration error, not control flow.
var ErrNoLegalMoves = errors.New("no legal moves available")

// Strategy selects one move from the provided legal set within a wall-clock
// budget. The budget is advisory: implementations time-box themselves, the
// caller never pre-empts a running search.
type Strategy interface {
	ChooseMove(pos *game.Position, legalMoves []game.Move, side game.Color, budget time.Duration) (game.Move, error)
}

var registry = map[string]func() Strategy{
	"minimax": func() Strategy { return NewMinimax() },
	"random":  func() Strategy { return NewRandom() },
}

// New resolves a registered strategy by name.
func New(name string) (Strategy, error) {
	create, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have: %s)", name, strings.Join(Names(), ", "))
	}
	return create(), nil
}

// Names lists the registered strategies.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
