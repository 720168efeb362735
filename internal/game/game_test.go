package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	t.Run("Empty board is in progress", func(t *testing.T) {
		// Given: a fresh board
		board := Board{}

		// When: the board is evaluated
		result := Evaluate(board)

		// Then: the game is still in progress
		require.Equal(t, Result{Status: StatusInProgress}, result)
	})

	t.Run("Row win reports the line", func(t *testing.T) {
		// Given: X holds the top row
		board := Board{PlayerX, PlayerX, PlayerX, PlayerO, PlayerO, "", "", "", ""}

		// When: the board is evaluated
		result := Evaluate(board)

		// Then: X wins on the top row
		require.Equal(t, StatusWon, result.Status)
		require.Equal(t, PlayerX, result.Winner)
		require.Equal(t, [3]int{0, 1, 2}, result.Line)
	})

	t.Run("Column win reports the line", func(t *testing.T) {
		// Given: O holds the left column
		board := Board{PlayerO, PlayerX, PlayerX, PlayerO, PlayerX, "", PlayerO, "", ""}

		// When: the board is evaluated
		result := Evaluate(board)

		// Then: O wins on the left column
		require.Equal(t, StatusWon, result.Status)
		require.Equal(t, PlayerO, result.Winner)
		require.Equal(t, [3]int{0, 3, 6}, result.Line)
	})

	t.Run("Diagonal win reports the line", func(t *testing.T) {
		// Given: X holds the main diagonal
		board := Board{PlayerX, PlayerX, PlayerO, PlayerO, PlayerX, "", "", "", PlayerX}

		// When: the board is evaluated
		result := Evaluate(board)

		// Then: X wins on the main diagonal
		require.Equal(t, StatusWon, result.Status)
		require.Equal(t, PlayerX, result.Winner)
		require.Equal(t, [3]int{0, 4, 8}, result.Line)
	})

	t.Run("Full board without a line is a draw", func(t *testing.T) {
		// Given: a full board with no completed line
		board := Board{PlayerX, PlayerO, PlayerX, PlayerX, PlayerO, PlayerO, PlayerO, PlayerX, PlayerX}

		// When: the board is evaluated
		result := Evaluate(board)

		// Then: the game is a draw
		assert.Equal(t, Result{Status: StatusDraw}, result)
	})

	t.Run("Partially filled board stays in progress", func(t *testing.T) {
		// Given: a board with moves but no line
		board := Board{PlayerX, PlayerO, PlayerX, "", PlayerO, "", PlayerX, "", ""}

		// When: the board is evaluated
		result := Evaluate(board)

		// Then: the game is still in progress
		assert.Equal(t, Result{Status: StatusInProgress}, result)
	})
}

func TestIsLegalMove(t *testing.T) {
	board := Board{PlayerX, "", "", "", "", "", "", "", ""}

	// Then: empty cells in range are legal, everything else is not
	assert.True(t, IsLegalMove(board, 1))
	assert.True(t, IsLegalMove(board, 8))
	assert.False(t, IsLegalMove(board, 0))
	assert.False(t, IsLegalMove(board, -1))
	assert.False(t, IsLegalMove(board, 9))
}

func TestOpponent(t *testing.T) {
	assert.Equal(t, PlayerO, Opponent(PlayerX))
	assert.Equal(t, PlayerX, Opponent(PlayerO))
}
