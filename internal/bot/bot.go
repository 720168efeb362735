package bot

import (
	"math/rand"
	"time"

	"github.com/glassboardgames/tictactoe-backend/internal/game"
)

var corners = []int{0, 2, 6, 8}

// Picker selects the computer's move. The priority is fixed: win now, block
// the opponent's win, take the center, take a corner, take anything left.
// Tie-breaking in the last two tiers is random; the source is injectable so
// tests can pin the choice.
type Picker struct {
	rnd *rand.Rand
}

// New returns a Picker. A nil source falls back to a time-seeded one.
func New(rnd *rand.Rand) *Picker {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // game move tie-breaking
	}
	return &Picker{rnd: rnd}
}

// ChooseMove returns the cell to play for mark. ok is false only when the
// board has no empty cell left.
func (that *Picker) ChooseMove(board game.Board, mark string) (int, bool) {
	if cell, ok := findWinningCell(board, mark); ok {
		return cell, true
	}

	if cell, ok := findWinningCell(board, game.Opponent(mark)); ok {
		return cell, true
	}

	const center = 4
	if board[center] == game.EmptyCell {
		return center, true
	}

	var open []int
	for _, cell := range corners {
		if board[cell] == game.EmptyCell {
			open = append(open, cell)
		}
	}
	if len(open) > 0 {
		return open[that.rnd.Intn(len(open))], true
	}

	for cell := range board {
		if board[cell] == game.EmptyCell {
			open = append(open, cell)
		}
	}
	if len(open) > 0 {
		return open[that.rnd.Intn(len(open))], true
	}

	return 0, false
}

// findWinningCell returns the lowest empty cell that completes a line for mark.
func findWinningCell(board game.Board, mark string) (int, bool) {
	for cell := range board {
		if board[cell] != game.EmptyCell {
			continue
		}

		board[cell] = mark
		result := game.Evaluate(board)
		board[cell] = game.EmptyCell

		if result.Status == game.StatusWon && result.Winner == mark {
			return cell, true
		}
	}

	return 0, false
}
