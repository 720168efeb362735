package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/glassboardgames/tictactoe-backend/internal/apperror"
	"github.com/glassboardgames/tictactoe-backend/internal/session"
)

const sessionKeyPrefix = "session:"

// SessionRepository persists session snapshots so a client can resume a game
// after a reconnect. Only the current state is stored, never move history.
type SessionRepository interface {
	Save(ctx context.Context, state session.Session) error
	GetByID(ctx context.Context, id string) (session.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

func (that *dbSession) Save(ctx context.Context, state session.Session) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	if err = that.client.Set(ctx, sessionKeyPrefix+state.ID, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (that *dbSession) GetByID(ctx context.Context, id string) (session.Session, error) {
	response, err := that.client.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return session.Session{}, apperror.ErrSessionNotFound
	}

	if err != nil {
		return session.Session{}, fmt.Errorf("failed to get session by id: %w", err)
	}

	var state session.Session
	if err = json.Unmarshal([]byte(response), &state); err != nil {
		return session.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return state, nil
}

func (that *dbSession) DeleteByID(ctx context.Context, id string) error {
	if err := that.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session by id: %w", err)
	}

	return nil
}
