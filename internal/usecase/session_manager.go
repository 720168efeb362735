package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glassboardgames/tictactoe-backend/internal/apperror"
	"github.com/glassboardgames/tictactoe-backend/internal/bot"
	"github.com/glassboardgames/tictactoe-backend/internal/session"
)

const persistTimeout = 5 * time.Second

type sessionRepo interface {
	Save(ctx context.Context, state session.Session) error
	GetByID(ctx context.Context, id string) (session.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// SessionManager hosts the live controllers, one per session, and writes a
// snapshot through the repository after every state change so sessions
// survive a reconnect.
type SessionManager struct {
	logger   *slog.Logger
	repo     sessionRepo
	botDelay time.Duration

	mu     sync.Mutex
	live   map[string]*session.Controller
	notify func(session.Session)
}

func NewSessionManager(logger *slog.Logger, repo sessionRepo, botDelay time.Duration) *SessionManager {
	return &SessionManager{
		logger:   logger.With("component", "session-manager"),
		repo:     repo,
		botDelay: botDelay,
		live:     make(map[string]*session.Controller),
	}
}

// SetNotify registers a callback fired with the new state after a delayed
// computer move lands, so a transport can push it to the client.
func (that *SessionManager) SetNotify(fn func(session.Session)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.notify = fn
}

// Open returns the session with the given id, restoring it from storage when
// it is not live, or creates a fresh one when id is empty or unknown.
func (that *SessionManager) Open(ctx context.Context, id, mode string) (session.Session, error) {
	if mode == "" {
		mode = session.ModeTwoPlayer
	}

	if !session.IsValidMode(mode) {
		return session.Session{}, apperror.ErrUnknownMode
	}

	if id == "" {
		id = uuid.NewString()
	}

	ctl, err := that.controller(ctx, id)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		ctl = that.register(id, mode)
		err = nil
	}

	if err != nil {
		return session.Session{}, fmt.Errorf("failed to open session: %w", err)
	}

	state := ctl.Snapshot()
	if err = that.repo.Save(ctx, state); err != nil {
		return session.Session{}, fmt.Errorf("failed to save session: %w", err)
	}

	return state, nil
}

// Play applies a human move. Rejections come back as sentinel errors together
// with the unchanged state, so a transport can echo it and move on.
func (that *SessionManager) Play(ctx context.Context, id string, cell int) (session.Session, error) {
	ctl, err := that.controller(ctx, id)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	state, err := ctl.Play(cell)
	if err != nil {
		return state, err
	}

	if err = that.repo.Save(ctx, state); err != nil {
		return state, fmt.Errorf("failed to save session: %w", err)
	}

	return state, nil
}

// Reset restarts the session's game, keeping its mode.
func (that *SessionManager) Reset(ctx context.Context, id string) (session.Session, error) {
	ctl, err := that.controller(ctx, id)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	state := ctl.Reset()
	if err = that.repo.Save(ctx, state); err != nil {
		return state, fmt.Errorf("failed to save session: %w", err)
	}

	return state, nil
}

// SetMode restarts the session's game in the given mode.
func (that *SessionManager) SetMode(ctx context.Context, id, mode string) (session.Session, error) {
	ctl, err := that.controller(ctx, id)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	state, err := ctl.SetMode(mode)
	if err != nil {
		return session.Session{}, err
	}

	if err = that.repo.Save(ctx, state); err != nil {
		return state, fmt.Errorf("failed to save session: %w", err)
	}

	return state, nil
}

// State returns the current session state without mutating it.
func (that *SessionManager) State(ctx context.Context, id string) (session.Session, error) {
	ctl, err := that.controller(ctx, id)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	return ctl.Snapshot(), nil
}

// Close drops the live controller and deletes the stored snapshot.
func (that *SessionManager) Close(ctx context.Context, id string) error {
	that.mu.Lock()
	if ctl, ok := that.live[id]; ok {
		ctl.Reset() // cancels any pending computer move
		delete(that.live, id)
	}
	that.mu.Unlock()

	if err := that.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// controller returns the live controller for id, restoring one from storage
// when needed.
func (that *SessionManager) controller(ctx context.Context, id string) (*session.Controller, error) {
	that.mu.Lock()
	ctl, ok := that.live[id]
	that.mu.Unlock()

	if ok {
		return ctl, nil
	}

	state, err := that.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	// lost the race to another restore
	if ctl, ok = that.live[id]; ok {
		return ctl, nil
	}

	ctl = that.registerLocked(id, state.Mode)
	ctl.Restore(state)

	return ctl, nil
}

func (that *SessionManager) register(id, mode string) *session.Controller {
	that.mu.Lock()
	defer that.mu.Unlock()

	if ctl, ok := that.live[id]; ok {
		return ctl
	}

	return that.registerLocked(id, mode)
}

func (that *SessionManager) registerLocked(id, mode string) *session.Controller {
	ctl := session.NewController(that.logger, id, mode, bot.New(nil), that.botDelay)
	ctl.SetOnChange(that.persistAsync)
	that.live[id] = ctl

	return ctl
}

// persistAsync stores the state produced by a delayed computer move; the
// originating request has long returned, so it runs on its own deadline.
func (that *SessionManager) persistAsync(state session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := that.repo.Save(ctx, state); err != nil {
		that.logger.Error("failed to save session after computer move", "sessionID", state.ID, "error", err)
	}

	that.mu.Lock()
	notify := that.notify
	that.mu.Unlock()

	if notify != nil {
		notify(state)
	}
}
