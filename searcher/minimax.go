package searcher

import (
	"time"

	"arena/game"

	"github.com/rs/zerolog/log"
)

// MaxDepth caps iterative deepening and bounds recursion.
const MaxDepth = 20

const infinity = 1 << 30

// Minimax is an iterative-deepening minimax search with alpha-beta pruning.
// Scores come from Evaluate, always from White's perspective; the driver
// maximizes when playing White and minimizes when playing Black.
type Minimax struct {
	maxDepth int
	nodes    int
}

type Option func(m *Minimax)

func WithMaxDepth(depth int) Option {
	return func(m *Minimax) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

func NewMinimax(options ...Option) *Minimax {
	m := &Minimax{maxDepth: MaxDepth}
	for _, option := range options {
		option(m)
	}
	return m
}

// ChooseMove runs deepening searches until 90% of the budget is consumed, a
// forced-mate-range score appears, or the depth cap is reached. Deeper
// completed results supersede shallower ones; on an internal search error
// the best move found so far is kept.
func (m *Minimax) ChooseMove(pos *game.Position, legalMoves []game.Move, side game.Color, budget time.Duration) (game.Move, error) {
	if len(legalMoves) == 0 {
		return "", ErrNoLegalMoves
	}
	if len(legalMoves) == 1 {
		return legalMoves[0], nil
	}

	start := time.Now()
	best := legalMoves[0]
	m.nodes = 0
	maximizing := side == game.White

	for depth := 1; depth <= m.maxDepth; depth++ {
		if time.Since(start) > budget*9/10 {
			break
		}

		score, move, err := m.search(pos, depth, -infinity, infinity, maximizing, start, budget)
		if err != nil {
			log.Warn().Err(err).Int("depth", depth).Msg("search failed, keeping best move so far")
			break
		}
		if move != "" {
			best = move
		}

		log.Debug().
			Int("depth", depth).
			Int("nodes", m.nodes).
			Dur("elapsed", time.Since(start)).
			Int("eval", score).
			Str("best", string(best)).
			Msg("completed search depth")

		if score > DecisiveScore || score < -DecisiveScore {
			log.Info().Int("eval", score).Msg("found decisive line, stopping search")
			break
		}
	}

	return best, nil
}

// Nodes returns the node count of the last ChooseMove invocation.
func (m *Minimax) Nodes() int {
	return m.nodes
}

func (m *Minimax) search(p *game.Position, depth, alpha, beta int, maximizing bool, start time.Time, budget time.Duration) (int, game.Move, error) {
	m.nodes++

	// Out of time, depth exhausted or terminal: stand pat on the static
	// evaluation with no move.
	if time.Since(start) > budget*95/100 {
		return Evaluate(p), "", nil
	}
	if depth == 0 || p.Terminal() {
		return Evaluate(p), "", nil
	}

	moves := p.LegalMoves()
	if len(moves) == 0 {
		return Evaluate(p), "", nil
	}

	var best game.Move
	if maximizing {
		maxEval := -infinity
		for _, mv := range orderMoves(p, moves) {
			child, err := p.Apply(mv)
			if err != nil {
				return 0, "", err
			}
			score, _, err := m.search(child, depth-1, alpha, beta, false, start, budget)
			if err != nil {
				return 0, "", err
			}
			// Strict comparison: ties keep the earliest-found move.
			if score > maxEval {
				maxEval, best = score, mv
			}
			if score > alpha {
				alpha = score
			}
			if beta <= alpha {
				break
			}
		}
		return maxEval, best, nil
	}

	minEval := infinity
	for _, mv := range orderMoves(p, moves) {
		child, err := p.Apply(mv)
		if err != nil {
			return 0, "", err
		}
		score, _, err := m.search(child, depth-1, alpha, beta, true, start, budget)
		if err != nil {
			return 0, "", err
		}
		if score < minEval {
			minEval, best = score, mv
		}
		if score < beta {
			beta = score
		}
		if beta <= alpha {
			break
		}
	}
	return minEval, best, nil
}
