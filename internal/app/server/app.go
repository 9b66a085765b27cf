// Package server собирает зависимости и запускает HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"pm2dash/internal/app/server/api"
	"pm2dash/internal/app/server/api/http/health"
	"pm2dash/internal/app/server/crypto"
	"pm2dash/internal/config"
	"pm2dash/internal/domain/event"
	"pm2dash/internal/domain/session"
	"pm2dash/internal/domain/user"
	"pm2dash/internal/infrastructure/metrics"
	"pm2dash/internal/infrastructure/notify/discord"
	"pm2dash/internal/infrastructure/storage"
	"pm2dash/internal/infrastructure/storage/credfile"
	"pm2dash/internal/utils/logger"
)

const (
	shutdownTimeout     = 15 * time.Second
	purgeInterval       = 10 * time.Minute
	readHeaderTimeout   = 5 * time.Second
	dispatcherQueueSize = event.DefaultBufferSize
)

type App struct {
	cfg *config.Config
	log *slog.Logger

	sessions   *storage.Sessions
	dispatcher *event.Dispatcher
	sessionSvc *session.Service
	server     *http.Server
}

// NewApp поднимает все зависимости. Ошибка ключа или хранилища учетных записей фатальна.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.NewWithOptions(cfg.Env, logger.Options{Level: cfg.Logger.LogLevel})

	key, err := crypto.ResolveKey(cfg.Auth.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	store := credfile.New(cfg.CredentialsPath(), cipher, log)
	if err := store.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("credential store: %w", err)
	}

	sessions, err := storage.OpenSessions(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	notifier := discord.New(cfg.Notify.DiscordWebhookURL, log)
	if !notifier.Enabled() {
		log.Info("discord notifications disabled")
	}
	dispatcher := event.NewDispatcher(log, dispatcherQueueSize, recorder, notifier)

	users := user.NewService(store, user.NewCredentialValidator(), dispatcher, log,
		user.WithLockoutPolicy(user.LockoutPolicy{
			MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
			Duration:          cfg.Auth.LockoutDuration,
		}),
	)
	sessionSvc := session.NewService(sessions, cfg.Session.TTL, log)

	router := api.New(api.Deps{
		Users:        users,
		Sessions:     sessionSvc,
		Checks:       map[string]health.Checker{"credentials": store, "sessions": sessions},
		Metrics:      recorder.Handler(),
		CookieSecure: cfg.Session.CookieSecure,
		SessionTTL:   cfg.Session.TTL,

		TrustedProxies: cfg.Server.TrustedProxies,
	}, log)

	log.Info("application initialized",
		slog.String("env", cfg.Env),
		slog.String("credentials", store.Path()),
		slog.String("sessions", sessions.Backend),
	)

	return &App{
		cfg:        cfg,
		log:        log,
		sessions:   sessions,
		dispatcher: dispatcher,
		sessionSvc: sessionSvc,
		server: &http.Server{
			Addr:              cfg.Server.RunAddress,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// Run блокируется до SIGINT/SIGTERM или ошибки сервера
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.purgeSessions(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		app.log.Info("starting HTTP server", slog.String("address", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.log.Error("http shutdown", slog.String("error", err.Error()))
	}
	wg.Wait()

	if err := app.dispatcher.Close(shutdownCtx); err != nil {
		app.log.Warn("event dispatcher did not drain", slog.String("error", err.Error()))
	}
	if err := app.sessions.Close(); err != nil {
		app.log.Error("close session storage", slog.String("error", err.Error()))
	}

	app.log.Info("server stopped")
	return runErr
}

func (app *App) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.sessionSvc.Purge(ctx)
			if err != nil {
				app.log.Error("purge sessions", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				app.log.Info("expired sessions purged", slog.Int64("count", n))
			}
		}
	}
}
