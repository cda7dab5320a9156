package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/config"
	"expense-ledger/internal/core"
	"expense-ledger/internal/handlers"
	"expense-ledger/internal/logger"
	"expense-ledger/internal/storage"
	"expense-ledger/web"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logs := logger.New("expense-ledger", cfg.Level())
	defer logs.Sync() //nolint:errcheck

	db, err := storage.NewDB(cfg.DataDir)
	if err != nil {
		logs.Errorw("failed to open database", "dir", cfg.DataDir, "error", err)
		return err
	}
	defer db.Close()

	tracker := core.NewTracker(logs.Named("core"), db)
	if err := bootstrapAdmin(logs, db, tracker, cfg); err != nil {
		logs.Errorw("failed to create admin account", "error", err)
		return err
	}

	sessions := auth.NewSessions([]byte(cfg.SessionSecret), cfg.SessionDuration)
	h, err := handlers.NewHandlers(logs.Named("http"), tracker, sessions, web.TemplatesFS, cfg.SecureCookie)
	if err != nil {
		logs.Errorw("failed to load templates", "error", err)
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        setupRouter(h, logs.Named("access")),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logs.Infow("starting server", "port", cfg.Port, "data_dir", db.Dir())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logs.Infow("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logs.Errorw("server error", "error", err)
		return err
	}
	logs.Infow("server stopped gracefully")
	return nil
}

// setupRouter registers every route. Everything except the login,
// registration and logout pages requires a session.
func setupRouter(h *handlers.Handlers, logs *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /logout", h.Logout)

	mux.Handle("GET /{$}", h.AuthMiddleware(http.HandlerFunc(h.Index)))
	mux.Handle("POST /{$}", h.AuthMiddleware(http.HandlerFunc(h.CreateExpense)))
	mux.Handle("POST /delete/{id}", h.AuthMiddleware(http.HandlerFunc(h.DeleteExpense)))

	return handlers.LoggingMiddleware(logs, mux)
}

// bootstrapAdmin creates the configured admin account on an empty users
// table.
func bootstrapAdmin(logs *zap.SugaredLogger, db *storage.DB, tracker *core.Tracker, cfg *config.Config) error {
	if cfg.AdminUser == "" {
		return nil
	}

	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	user, err := tracker.RegisterAccount(cfg.AdminUser, cfg.AdminPassword)
	if err != nil {
		return err
	}
	logs.Infow("created admin account", "username", user.Username, "user_id", user.ID)
	return nil
}
