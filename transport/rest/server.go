package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glassboardgames/tictactoe-backend/internal/session"
)

type sessionManager interface {
	Open(ctx context.Context, id, mode string) (session.Session, error)
	Play(ctx context.Context, id string, cell int) (session.Session, error)
	Reset(ctx context.Context, id string) (session.Session, error)
	SetMode(ctx context.Context, id, mode string) (session.Session, error)
	State(ctx context.Context, id string) (session.Session, error)
	Close(ctx context.Context, id string) error
}

// NewRouter wires the REST surface: a ping endpoint and the session
// operations the presentation layer calls into.
func NewRouter(logger *slog.Logger, manager sessionManager) http.Handler {
	router := chi.NewRouter()
	h := &handlers{logger: logger.With("component", "rest"), manager: manager}

	router.Get("/ping", h.ping)
	router.Post("/sessions", h.open)
	router.Route("/sessions/{id}", func(router chi.Router) {
		router.Get("/", h.state)
		router.Post("/moves", h.play)
		router.Post("/reset", h.reset)
		router.Post("/mode", h.setMode)
		router.Delete("/", h.close)
	})

	return router
}

// Start runs the REST server until the context is cancelled or the listener
// fails.
func Start(ctx context.Context, logger *slog.Logger, manager sessionManager, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(logger, manager),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
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
