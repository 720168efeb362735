package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassboardgames/tictactoe-backend/internal/apperror"
	"github.com/glassboardgames/tictactoe-backend/internal/game"
	"github.com/glassboardgames/tictactoe-backend/internal/session"
)

// memoryRepo is an in-memory stand-in for the redis repository.
type memoryRepo struct {
	mu    sync.Mutex
	store map[string]session.Session
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{store: make(map[string]session.Session)}
}

func (that *memoryRepo) Save(_ context.Context, state session.Session) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.store[state.ID] = state
	return nil
}

func (that *memoryRepo) GetByID(_ context.Context, id string) (session.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	state, ok := that.store[id]
	if !ok {
		return session.Session{}, apperror.ErrSessionNotFound
	}
	return state, nil
}

func (that *memoryRepo) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.store, id)
	return nil
}

func newTestManager(repo sessionRepo, botDelay time.Duration) *SessionManager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSessionManager(logger, repo, botDelay)
}

func TestSessionManager_Open(t *testing.T) {
	t.Run("Empty id creates a fresh session", func(t *testing.T) {
		ctx := context.Background()
		repo := newMemoryRepo()
		manager := newTestManager(repo, 0)

		// When: a session is opened without an id
		state, err := manager.Open(ctx, "", "")

		// Then: a two-player session with a generated id is created and stored
		require.NoError(t, err)
		require.NotEmpty(t, state.ID)
		require.Equal(t, session.ModeTwoPlayer, state.Mode)
		require.Equal(t, game.PlayerX, state.Turn)

		stored, err := repo.GetByID(ctx, state.ID)
		require.NoError(t, err)
		require.Equal(t, state, stored)
	})

	t.Run("Stored session is restored", func(t *testing.T) {
		ctx := context.Background()
		repo := newMemoryRepo()

		// Given: a snapshot in storage but no live controller
		saved := session.NewSession("resume-me", session.ModeVsComputer)
		saved.Board[0] = game.PlayerX
		saved.Board[4] = game.PlayerO
		require.NoError(t, repo.Save(ctx, saved))

		manager := newTestManager(repo, 0)

		// When: the session is opened by id
		state, err := manager.Open(ctx, "resume-me", "")

		// Then: the board comes back as stored
		require.NoError(t, err)
		assert.Equal(t, saved.Board, state.Board)
		assert.Equal(t, session.ModeVsComputer, state.Mode)
	})

	t.Run("Unknown mode is rejected", func(t *testing.T) {
		manager := newTestManager(newMemoryRepo(), 0)

		_, err := manager.Open(context.Background(), "", "best-of-three")
		require.ErrorIs(t, err, apperror.ErrUnknownMode)
	})

	t.Run("Snapshot stored on the computer's turn does not lock the session", func(t *testing.T) {
		ctx := context.Background()
		repo := newMemoryRepo()

		// Given: a vs_computer snapshot persisted mid thinking delay, O to move
		saved := session.NewSession("mid-think", session.ModeVsComputer)
		saved.Board[0] = game.PlayerX
		saved.Turn = game.PlayerO
		require.NoError(t, repo.Save(ctx, saved))

		manager := newTestManager(repo, 10*time.Millisecond)

		notified := make(chan session.Session, 1)
		manager.SetNotify(func(state session.Session) {
			notified <- state
		})

		// When: the session is reopened after a restart
		_, err := manager.Open(ctx, "mid-think", "")
		require.NoError(t, err)

		// Then: the computer's move is rescheduled and lands
		var resumed session.Session
		select {
		case resumed = <-notified:
		case <-time.After(time.Second):
			t.Fatal("computer move was never rescheduled after restore")
		}

		count := 0
		for _, cell := range resumed.Board {
			if cell == game.PlayerO {
				count++
			}
		}
		require.Equal(t, 1, count)
		require.Equal(t, game.PlayerX, resumed.Turn)

		// Then: the human can keep playing
		cell := 0
		for i, mark := range resumed.Board {
			if mark == game.EmptyCell {
				cell = i
				break
			}
		}
		_, err = manager.Play(ctx, "mid-think", cell)
		require.NoError(t, err)
	})
}

func TestSessionManager_Play(t *testing.T) {
	t.Run("Accepted move is persisted", func(t *testing.T) {
		ctx := context.Background()
		repo := newMemoryRepo()
		manager := newTestManager(repo, 0)

		state, err := manager.Open(ctx, "", "")
		require.NoError(t, err)

		// When: a legal move is played
		state, err = manager.Play(ctx, state.ID, 0)
		require.NoError(t, err)

		// Then: the snapshot in storage reflects it
		stored, err := repo.GetByID(ctx, state.ID)
		require.NoError(t, err)
		assert.Equal(t, game.PlayerX, stored.Board[0])
		assert.Equal(t, game.PlayerO, stored.Turn)
	})

	t.Run("Rejected move comes back as a sentinel with unchanged state", func(t *testing.T) {
		ctx := context.Background()
		manager := newTestManager(newMemoryRepo(), 0)

		state, err := manager.Open(ctx, "", "")
		require.NoError(t, err)

		_, err = manager.Play(ctx, state.ID, 0)
		require.NoError(t, err)

		// When: the occupied cell is played again
		after, err := manager.Play(ctx, state.ID, 0)

		// Then: the sentinel surfaces and the board is unchanged
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, game.PlayerX, after.Board[0])
	})

	t.Run("Unknown session", func(t *testing.T) {
		manager := newTestManager(newMemoryRepo(), 0)

		_, err := manager.Play(context.Background(), "missing", 0)
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("Delayed computer move is persisted and notified", func(t *testing.T) {
		ctx := context.Background()
		repo := newMemoryRepo()
		manager := newTestManager(repo, 10*time.Millisecond)

		notified := make(chan session.Session, 1)
		manager.SetNotify(func(state session.Session) {
			notified <- state
		})

		state, err := manager.Open(ctx, "", session.ModeVsComputer)
		require.NoError(t, err)

		// When: the human plays and the thinking delay elapses
		_, err = manager.Play(ctx, state.ID, 0)
		require.NoError(t, err)

		// Then: the notify hook fires with the computer's move applied
		select {
		case pushed := <-notified:
			count := 0
			for _, cell := range pushed.Board {
				if cell == game.PlayerO {
					count++
				}
			}
			require.Equal(t, 1, count)

			stored, err := repo.GetByID(ctx, state.ID)
			require.NoError(t, err)
			assert.Equal(t, pushed.Board, stored.Board)
		case <-time.After(time.Second):
			t.Fatal("computer move never notified")
		}
	})
}

func TestSessionManager_ResetAndMode(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	manager := newTestManager(repo, 0)

	state, err := manager.Open(ctx, "", "")
	require.NoError(t, err)

	_, err = manager.Play(ctx, state.ID, 0)
	require.NoError(t, err)

	// When: the session is reset
	reset, err := manager.Reset(ctx, state.ID)
	require.NoError(t, err)

	// Then: the stored snapshot is back to a fresh board
	require.Equal(t, game.Board{}, reset.Board)
	stored, err := repo.GetByID(ctx, state.ID)
	require.NoError(t, err)
	require.Equal(t, game.Board{}, stored.Board)

	// When: the mode changes
	switched, err := manager.SetMode(ctx, state.ID, session.ModeVsComputer)
	require.NoError(t, err)

	// Then: the game restarts in the new mode
	require.Equal(t, session.ModeVsComputer, switched.Mode)
	require.Equal(t, game.Board{}, switched.Board)

	// When: an unsupported mode is requested
	_, err = manager.SetMode(ctx, state.ID, "casual")
	require.ErrorIs(t, err, apperror.ErrUnknownMode)
}

func TestSessionManager_Close(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	manager := newTestManager(repo, 0)

	state, err := manager.Open(ctx, "", "")
	require.NoError(t, err)

	// When: the session is closed
	err = manager.Close(ctx, state.ID)
	require.NoError(t, err)

	// Then: it is gone from storage and from the manager
	_, err = manager.State(ctx, state.ID)
	require.ErrorIs(t, err, apperror.ErrSessionNotFound)
}
