package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("decoding the starting position", func(t *testing.T) {
		pos, err := Decode("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")

		require.NoError(t, err)
		require.Equal(t, White, pos.Turn(), "White moves first")
		require.Len(t, pos.LegalMoves(), 20, "Starting position should have 20 legal moves")
	})

	t.Run("rejecting a malformed FEN", func(t *testing.T) {
		_, err := Decode("not a position")

		require.Error(t, err)
	})
}

func TestApply(t *testing.T) {
	t.Run("applying a legal move leaves the receiver untouched", func(t *testing.T) {
		pos := Starting()

		next, err := pos.Apply("e4")

		require.NoError(t, err)
		require.Equal(t, Black, next.Turn(), "Black should be to move after 1.e4")
		require.True(t, strings.HasPrefix(next.FEN(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b"),
			"New position should reflect the pawn on e4")
		require.Equal(t, White, pos.Turn(), "Original position should not change")
	})

	t.Run("rejecting an illegal move", func(t *testing.T) {
		pos := Starting()

		_, err := pos.Apply("Qh5")

		require.Error(t, err, "The queen cannot move from the starting position")
	})
}

func TestMoveClassification(t *testing.T) {
	// White to move with Qxf7# available (scholar's mate pattern).
	pos, err := Decode("r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5Q2/PPPP1PPP/RNB1K1NR w KQkq - 4 4")
	require.NoError(t, err)

	var mate Move
	for _, m := range pos.LegalMoves() {
		if strings.Contains(string(m), "xf7") {
			mate = m
			break
		}
	}
	require.NotEmpty(t, mate, "Qxf7 should be legal here")

	t.Run("classifying a capture", func(t *testing.T) {
		require.True(t, pos.IsCapture(mate))
	})

	t.Run("classifying a checking move", func(t *testing.T) {
		require.True(t, pos.GivesCheck(mate))
	})

	t.Run("classifying a quiet move", func(t *testing.T) {
		require.False(t, pos.IsCapture("a3"))
		require.False(t, pos.GivesCheck("a3"))
	})
}

func TestStatus(t *testing.T) {
	t.Run("detecting checkmate against the side to move", func(t *testing.T) {
		// Fool's mate: White is checkmated and to move.
		pos, err := Decode("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")

		require.NoError(t, err)
		require.Equal(t, Checkmate, pos.Status())
		require.Equal(t, White, pos.Turn(), "The checkmated side is the side to move")
		require.True(t, pos.Terminal())
	})

	t.Run("detecting stalemate", func(t *testing.T) {
		pos, err := Decode("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")

		require.NoError(t, err)
		require.Equal(t, Stalemate, pos.Status())
	})

	t.Run("detecting insufficient material", func(t *testing.T) {
		pos, err := Decode("8/8/8/4k3/8/8/2B1K3/8 w - - 0 1")

		require.NoError(t, err)
		require.Equal(t, InsufficientMaterial, pos.Status())
	})

	t.Run("a rook is sufficient material", func(t *testing.T) {
		pos, err := Decode("8/8/8/4k3/8/8/2R1K3/8 w - - 0 1")

		require.NoError(t, err)
		require.Equal(t, InProgress, pos.Status())
		require.False(t, pos.Terminal())
	})

	t.Run("a knight each is sufficient material", func(t *testing.T) {
		// Helpmates exist with a minor piece on each side, so the game
		// continues.
		pos, err := Decode("8/8/3nk3/8/8/8/2N1K3/8 w - - 0 1")

		require.NoError(t, err)
		require.Equal(t, InProgress, pos.Status())
	})

	t.Run("bishop versus knight is sufficient material", func(t *testing.T) {
		pos, err := Decode("8/8/3nk3/8/8/8/2B1K3/8 w - - 0 1")

		require.NoError(t, err)
		require.Equal(t, InProgress, pos.Status())
	})

	t.Run("same shade bishops on both sides are insufficient", func(t *testing.T) {
		// c2 and e6 are both light squares; neither bishop can ever attack
		// the other's shade, so no mate can be constructed.
		pos, err := Decode("8/8/4b3/4k3/8/8/2B1K3/8 w - - 0 1")

		require.NoError(t, err)
		require.Equal(t, InsufficientMaterial, pos.Status())
	})
}

func TestColorOther(t *testing.T) {
	require.Equal(t, Black, White.Other())
	require.Equal(t, White, Black.Other())
}
