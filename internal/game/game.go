package game

const (
	PlayerX = "X"
	PlayerO = "O"

	EmptyCell = ""
)

const (
	StatusInProgress = "in_progress"
	StatusWon        = "won"
	StatusDraw       = "draw"
)

// Board is the 3x3 grid stored row-major: index i maps to row i/3, column i%3.
type Board [9]string

// Lines are the 8 winning triples, checked rows first, then columns, then diagonals.
var Lines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Result is the outcome of evaluating a board. Winner and Line are only
// meaningful when Status is StatusWon.
type Result struct {
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
	Line   [3]int `json:"line,omitempty"`
}

func (that Result) IsInProgress() bool {
	return that.Status == StatusInProgress
}

// Evaluate scans the fixed lines and reports the first completed one; with one
// mark added per turn at most one line can complete, so order never matters.
func Evaluate(board Board) Result {
	for _, line := range Lines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != EmptyCell && a == b && b == c {
			return Result{Status: StatusWon, Winner: a, Line: line}
		}
	}

	for _, cell := range board {
		if cell == EmptyCell {
			return Result{Status: StatusInProgress}
		}
	}

	return Result{Status: StatusDraw}
}

// IsLegalMove reports whether cell is a playable index on the given board.
func IsLegalMove(board Board, cell int) bool {
	return cell >= 0 && cell < len(board) && board[cell] == EmptyCell
}

func Opponent(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
