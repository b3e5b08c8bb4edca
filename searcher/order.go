package searcher

import "arena/game"

// orderMoves partitions moves into captures, then checks, then the rest,
// keeping each group's original relative order. Ordering only improves
// pruning; it never changes which moves are searched.
func orderMoves(p *game.Position, moves []game.Move) []game.Move {
	var captures, checks, quiet []game.Move
	for _, m := range moves {
		switch {
		case p.IsCapture(m):
			captures = append(captures, m)
		case p.GivesCheck(m):
			checks = append(checks, m)
		default:
			quiet = append(quiet, m)
		}
	}
	ordered := make([]game.Move, 0, len(moves))
	ordered = append(ordered, captures...)
	ordered = append(ordered, checks...)
	return append(ordered, quiet...)
}
