package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glassboardgames/tictactoe-backend/internal/session"
)

type sessionManager interface {
	Open(ctx context.Context, id, mode string) (session.Session, error)
	Play(ctx context.Context, id string, cell int) (session.Session, error)
	Reset(ctx context.Context, id string) (session.Session, error)
	SetMode(ctx context.Context, id, mode string) (session.Session, error)
	State(ctx context.Context, id string) (session.Session, error)
}

type Server struct {
	logger   *slog.Logger
	manager  sessionManager
	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, conn *client, payload json.RawMessage) error

	mu          sync.Mutex
	subscribers map[string]map[*client]struct{}
}

func New(logger *slog.Logger, manager sessionManager) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		handlers:    make(map[string]func(context.Context, *client, json.RawMessage) error),
		subscribers: make(map[string]map[*client]struct{}),
	}

	server.handlers[actionOpen] = server.handleOpen
	server.handlers[actionPlay] = server.handlePlay
	server.handlers[actionReset] = server.handleReset
	server.handlers[actionMode] = server.handleMode
	server.handlers[actionState] = server.handleState

	return server
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.handleConnection(ctx, w, r)
	})

	return mux
}

// Start runs the websocket server until the context is cancelled or the
// listener fails.
func (that *Server) Start(ctx context.Context, port string) error {

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(ctx),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleConnection upgrades the request and serves its messages until the
// client disconnects.
func (that *Server) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := &client{conn: conn}
	defer func() {
		that.unsubscribe(c)
		_ = conn.Close()
	}()

	log.Info("websocket connection established", "remote", conn.RemoteAddr().String())

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("connection closed unexpectedly", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(raw, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			continue
		}

		if err = handler(ctx, c, message.Payload); err != nil {
			log.Error("failed to handle message", "action", message.Action, "error", err)
		}
	}
}

// PushState delivers the state produced by a delayed computer move to every
// connection watching that session. Wired as the manager's notify hook.
func (that *Server) PushState(state session.Session) {
	that.mu.Lock()
	subs := make([]*client, 0, len(that.subscribers[state.ID]))
	for c := range that.subscribers[state.ID] {
		subs = append(subs, c)
	}
	that.mu.Unlock()

	for _, c := range subs {
		if err := c.send(actionState, newStatePayload(state, nil)); err != nil {
			that.logger.Error("failed to push state", "sessionID", state.ID, "error", err)
		}
	}
}

func (that *Server) subscribe(c *client, sessionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if c.sessionID == sessionID {
		return
	}

	if prev, ok := that.subscribers[c.sessionID]; ok {
		delete(prev, c)
	}

	c.sessionID = sessionID
	if that.subscribers[sessionID] == nil {
		that.subscribers[sessionID] = make(map[*client]struct{})
	}
	that.subscribers[sessionID][c] = struct{}{}
}

func (that *Server) unsubscribe(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if subs, ok := that.subscribers[c.sessionID]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(that.subscribers, c.sessionID)
		}
	}
}

// client wraps one connection; gorilla allows a single concurrent writer, so
// writes go through a mutex.
type client struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	sessionID string
}

func (that *client) send(action string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.conn.WriteJSON(Message{Action: action, Payload: raw}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
