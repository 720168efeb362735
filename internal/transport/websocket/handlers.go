package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glassboardgames/tictactoe-backend/internal/apperror"
)

const (
	actionOpen  = "session:open"
	actionPlay  = "session:play"
	actionReset = "session:reset"
	actionMode  = "session:mode"
	actionState = "session:state"
)

func (that *Server) handleOpen(ctx context.Context, c *client, raw json.RawMessage) error {
	var payload openPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	state, err := that.manager.Open(ctx, payload.SessionID, payload.Mode)
	if err != nil {
		return that.replyError(c, actionOpen, fmt.Errorf("failed to open session: %w", err))
	}

	that.subscribe(c, state.ID)

	return c.send(actionOpen, newStatePayload(state, nil))
}

// handlePlay applies a human move. A rejected move is not an error: the
// client gets the unchanged state back with the reason attached, per the
// controller's total-operation contract.
func (that *Server) handlePlay(ctx context.Context, c *client, raw json.RawMessage) error {
	var payload playPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	state, err := that.manager.Play(ctx, c.sessionID, payload.Cell)
	if isRejection(err) {
		return c.send(actionPlay, newStatePayload(state, err))
	}

	if err != nil {
		return that.replyError(c, actionPlay, fmt.Errorf("failed to play: %w", err))
	}

	return c.send(actionPlay, newStatePayload(state, nil))
}

func (that *Server) handleReset(ctx context.Context, c *client, _ json.RawMessage) error {
	state, err := that.manager.Reset(ctx, c.sessionID)
	if err != nil {
		return that.replyError(c, actionReset, fmt.Errorf("failed to reset session: %w", err))
	}

	return c.send(actionReset, newStatePayload(state, nil))
}

func (that *Server) handleMode(ctx context.Context, c *client, raw json.RawMessage) error {
	var payload modePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	state, err := that.manager.SetMode(ctx, c.sessionID, payload.Mode)
	if err != nil {
		return that.replyError(c, actionMode, fmt.Errorf("failed to set mode: %w", err))
	}

	return c.send(actionMode, newStatePayload(state, nil))
}

func (that *Server) handleState(ctx context.Context, c *client, _ json.RawMessage) error {
	state, err := that.manager.State(ctx, c.sessionID)
	if err != nil {
		return that.replyError(c, actionState, fmt.Errorf("failed to get session state: %w", err))
	}

	return c.send(actionState, newStatePayload(state, nil))
}

// replyError answers the failed action so the client knows its request was
// dropped, then surfaces the original error for logging.
func (that *Server) replyError(c *client, action string, err error) error {
	if sendErr := c.send(action, errorPayload{Error: clientErrorMessage(err)}); sendErr != nil {
		that.logger.Error("failed to send error frame", "action", action, "error", sendErr)
	}

	return err
}

// clientErrorMessage maps an error to what the client may see; anything
// unexpected stays opaque.
func clientErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperror.ErrSessionNotFound):
		return apperror.ErrSessionNotFound.Error()
	case errors.Is(err, apperror.ErrUnknownMode):
		return apperror.ErrUnknownMode.Error()
	default:
		return "internal error"
	}
}

func isRejection(err error) bool {
	return errors.Is(err, apperror.ErrGameFinished) ||
		errors.Is(err, apperror.ErrCellOccupied) ||
		errors.Is(err, apperror.ErrInvalidCell) ||
		errors.Is(err, apperror.ErrComputerTurn)
}
