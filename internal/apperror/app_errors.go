package apperror

import "errors"

var (
	ErrGameFinished = errors.New("game is already finished")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrInvalidCell  = errors.New("invalid cell index")
	ErrComputerTurn = errors.New("it's the computer's turn")

	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownMode     = errors.New("unknown game mode")
)
