package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/glassboardgames/tictactoe-backend/internal/apperror"
	"github.com/glassboardgames/tictactoe-backend/internal/bot"
	"github.com/glassboardgames/tictactoe-backend/internal/game"
)

// Controller owns one Session and is its only mutator. Every operation
// places a mark and re-evaluates the result inside the same critical
// section, so the board and result can never be observed out of sync.
type Controller struct {
	mu       sync.Mutex
	state    Session
	picker   *bot.Picker
	botDelay time.Duration
	pending  *time.Timer
	onChange func(Session)
	logger   *slog.Logger
}

// NewController creates a controller around a fresh session. botDelay is the
// cosmetic "computer is thinking" pause; zero applies the computer's move
// synchronously inside Play, which is what tests want.
func NewController(logger *slog.Logger, id, mode string, picker *bot.Picker, botDelay time.Duration) *Controller {
	return &Controller{
		state:    NewSession(id, mode),
		picker:   picker,
		botDelay: botDelay,
		logger:   logger.With("component", "session", "sessionID", id),
	}
}

// Restore replaces the controller's state with a persisted snapshot. A
// snapshot taken during the computer's thinking delay still has the computer
// to move; the pending move died with the old process, so it is rescheduled
// here or the session could never leave the computer's turn.
func (that *Controller) Restore(state Session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.cancelPendingLocked()
	state.Generation = that.state.Generation + 1
	that.state = state

	if that.state.Result.IsInProgress() && that.state.TurnOwner() == OwnerComputer {
		that.scheduleComputerMoveLocked()
	}
}

// SetOnChange registers a callback fired with a state copy after a delayed
// computer move is applied. Synchronous transitions return the new state
// directly and do not fire it.
func (that *Controller) SetOnChange(fn func(Session)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.onChange = fn
}

// Snapshot returns a copy of the current session state.
func (that *Controller) Snapshot() Session {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

// Reset clears the board and hands the first move back to X. The mode is
// retained. Any pending computer move is cancelled and its generation
// invalidated.
func (that *Controller) Reset() Session {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.resetLocked(that.state.Mode)
}

// SetMode restarts the game in the given mode; a mode change always implies
// a reset, there is no mid-game switch.
func (that *Controller) SetMode(mode string) (Session, error) {
	if !IsValidMode(mode) {
		return Session{}, apperror.ErrUnknownMode
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return that.resetLocked(mode), nil
}

// Play applies the current mark at cell. It rejects the move, leaving the
// state untouched, when the game is over, the cell is not playable, or the
// computer owns the turn. A successful move that leaves the computer to move
// schedules the computer's reply through the same validation path.
func (that *Controller) Play(cell int) (Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.state.Result.IsInProgress() {
		return that.state, apperror.ErrGameFinished
	}

	if cell < 0 || cell >= len(that.state.Board) {
		return that.state, apperror.ErrInvalidCell
	}

	if that.state.Board[cell] != game.EmptyCell {
		return that.state, apperror.ErrCellOccupied
	}

	if that.state.TurnOwner() == OwnerComputer {
		return that.state, apperror.ErrComputerTurn
	}

	that.applyMoveLocked(cell)

	if that.state.Result.IsInProgress() && that.state.TurnOwner() == OwnerComputer {
		that.scheduleComputerMoveLocked()
	}

	return that.state, nil
}

func (that *Controller) resetLocked(mode string) Session {
	that.cancelPendingLocked()

	fresh := NewSession(that.state.ID, mode)
	fresh.Generation = that.state.Generation + 1
	that.state = fresh

	return that.state
}

func (that *Controller) cancelPendingLocked() {
	if that.pending != nil {
		that.pending.Stop()
		that.pending = nil
	}
}

// applyMoveLocked places the mark, recomputes the result and flips the turn
// if the game goes on. Caller has validated the move.
func (that *Controller) applyMoveLocked(cell int) {
	that.state.Board[cell] = that.state.Turn
	that.state.Result = game.Evaluate(that.state.Board)

	if that.state.Result.IsInProgress() {
		that.state.Turn = game.Opponent(that.state.Turn)
	}
}

func (that *Controller) scheduleComputerMoveLocked() {
	if that.botDelay <= 0 {
		that.applyComputerMoveLocked()
		return
	}

	generation := that.state.Generation
	that.pending = time.AfterFunc(that.botDelay, func() {
		that.fireComputerMove(generation)
	})
}

// fireComputerMove runs when the thinking delay elapses. A reset or mode
// change since scheduling bumps the generation; a stale callback must not
// touch the new session's board.
func (that *Controller) fireComputerMove(generation uint64) {
	that.mu.Lock()

	that.pending = nil

	if that.state.Generation != generation {
		that.mu.Unlock()
		that.logger.Debug("discarding stale computer move", "generation", generation)
		return
	}

	if !that.state.Result.IsInProgress() || that.state.TurnOwner() != OwnerComputer {
		that.mu.Unlock()
		return
	}

	that.applyComputerMoveLocked()

	state := that.state
	onChange := that.onChange
	that.mu.Unlock()

	if onChange != nil {
		onChange(state)
	}
}

func (that *Controller) applyComputerMoveLocked() {
	cell, ok := that.picker.ChooseMove(that.state.Board, that.state.Turn)
	if !ok || !game.IsLegalMove(that.state.Board, cell) {
		that.logger.Error("computer found no playable cell", "board", that.state.Board)
		return
	}

	that.applyMoveLocked(cell)
}
