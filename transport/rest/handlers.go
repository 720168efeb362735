package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glassboardgames/tictactoe-backend/internal/apperror"
	"github.com/glassboardgames/tictactoe-backend/internal/session"
)

type handlers struct {
	logger  *slog.Logger
	manager sessionManager
}

type openRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

type playRequest struct {
	Cell int `json:"cell"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

// sessionResponse echoes the full session state after every operation.
// Rejected carries the reason when a move was ignored; the state is then the
// unchanged session, matching the "invalid input is a no-op" contract.
type sessionResponse struct {
	Session   session.Session `json:"session"`
	TurnOwner string          `json:"turn_owner"`
	Rejected  string          `json:"rejected,omitempty"`
}

func (that *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (that *handlers) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	state, err := that.manager.Open(r.Context(), req.SessionID, req.Mode)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeState(w, state, nil)
}

func (that *handlers) state(w http.ResponseWriter, r *http.Request) {
	state, err := that.manager.State(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeState(w, state, nil)
}

func (that *handlers) play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	state, err := that.manager.Play(r.Context(), chi.URLParam(r, "id"), req.Cell)
	if isRejection(err) {
		that.writeState(w, state, err)
		return
	}

	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeState(w, state, nil)
}

func (that *handlers) reset(w http.ResponseWriter, r *http.Request) {
	state, err := that.manager.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeState(w, state, nil)
}

func (that *handlers) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	state, err := that.manager.SetMode(r.Context(), chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeState(w, state, nil)
}

func (that *handlers) close(w http.ResponseWriter, r *http.Request) {
	if err := that.manager.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		that.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// isRejection reports whether err is an ignorable gameplay rejection rather
// than a failure.
func isRejection(err error) bool {
	return errors.Is(err, apperror.ErrGameFinished) ||
		errors.Is(err, apperror.ErrCellOccupied) ||
		errors.Is(err, apperror.ErrInvalidCell) ||
		errors.Is(err, apperror.ErrComputerTurn)
}

func (that *handlers) writeState(w http.ResponseWriter, state session.Session, rejection error) {
	response := sessionResponse{
		Session:   state,
		TurnOwner: state.TurnOwner(),
	}
	if rejection != nil {
		response.Rejected = rejection.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func (that *handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperror.ErrUnknownMode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		that.logger.Error("request failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
