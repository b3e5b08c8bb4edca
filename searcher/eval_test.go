package searcher

import (
	"testing"

	"arena/game"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	t.Run("scoring the starting position as balanced", func(t *testing.T) {
		got := Evaluate(game.Starting())

		require.Equal(t, 0, got, "Symmetric material and tables should cancel out")
	})

	t.Run("scoring a position where White is checkmated", func(t *testing.T) {
		pos, err := game.Decode("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
		require.NoError(t, err)

		got := Evaluate(pos)

		require.Equal(t, -MateScore, got, "A mated White should score the full mate value for Black")
	})

	t.Run("scoring a position where Black is checkmated", func(t *testing.T) {
		pos, err := game.Decode("r1bqkb1r/pppp1Qpp/2n2n2/4p3/2B1P3/8/PPPP1PPP/RNB1K1NR b KQkq - 0 4")
		require.NoError(t, err)

		got := Evaluate(pos)

		require.Equal(t, MateScore, got, "A mated Black should score the full mate value for White")
	})

	t.Run("scoring stalemate as exactly zero", func(t *testing.T) {
		pos, err := game.Decode("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
		require.NoError(t, err)

		require.Equal(t, 0, Evaluate(pos))
	})

	t.Run("scoring insufficient material as exactly zero", func(t *testing.T) {
		pos, err := game.Decode("8/8/8/4k3/8/8/2B1K3/8 w - - 0 1")
		require.NoError(t, err)

		require.Equal(t, 0, Evaluate(pos))
	})

	t.Run("favoring the side with extra material", func(t *testing.T) {
		// Starting position without the black queen.
		pos, err := game.Decode("rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
		require.NoError(t, err)

		got := Evaluate(pos)

		require.Greater(t, got, 0, "White up a queen should score positive")
	})
}
