package websocket

import (
	"encoding/json"

	"github.com/glassboardgames/tictactoe-backend/internal/session"
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type openPayload struct {
	SessionID string `json:"session_id,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

type playPayload struct {
	Cell int `json:"cell"`
}

type modePayload struct {
	Mode string `json:"mode"`
}

// errorPayload answers an action that failed outright, e.g. one sent before
// a session was opened.
type errorPayload struct {
	Error string `json:"error"`
}

// statePayload is sent back after every action, accepted or not; a rejected
// move echoes the unchanged state with the reason attached.
type statePayload struct {
	Session   session.Session `json:"session"`
	TurnOwner string          `json:"turn_owner"`
	Rejected  string          `json:"rejected,omitempty"`
}

func newStatePayload(state session.Session, rejection error) statePayload {
	payload := statePayload{
		Session:   state,
		TurnOwner: state.TurnOwner(),
	}
	if rejection != nil {
		payload.Rejected = rejection.Error()
	}

	return payload
}
