package session

import (
	"github.com/glassboardgames/tictactoe-backend/internal/game"
)

const (
	ModeTwoPlayer  = "two_player"
	ModeVsComputer = "vs_computer"
)

const (
	OwnerHuman    = "human"
	OwnerComputer = "computer"
)

// Session is the full state of one game: board, mark to move, mode and the
// last evaluated result. Generation counts resets; a scheduled computer move
// carries the generation it was planned for and is discarded on mismatch.
type Session struct {
	ID         string      `json:"id"`
	Board      game.Board  `json:"board"`
	Turn       string      `json:"turn"`
	Mode       string      `json:"mode"`
	Result     game.Result `json:"result"`
	Generation uint64      `json:"generation"`
}

// NewSession returns a fresh session: empty board, X to move, game in progress.
func NewSession(id, mode string) Session {
	return Session{
		ID:     id,
		Turn:   game.PlayerX,
		Mode:   mode,
		Result: game.Result{Status: game.StatusInProgress},
	}
}

// TurnOwner reports which side is entitled to the next move. The computer
// always plays O in vs_computer mode.
func (that Session) TurnOwner() string {
	if that.Mode == ModeVsComputer && that.Turn == game.PlayerO {
		return OwnerComputer
	}
	return OwnerHuman
}

// IsValidMode reports whether mode is one of the supported game modes.
func IsValidMode(mode string) bool {
	return mode == ModeTwoPlayer || mode == ModeVsComputer
}
