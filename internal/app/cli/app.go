// Package cli - зависимости операторских команд. CLI работает с тем же
// зашифрованным файлом, что и сервер; flock в credfile не дает им перемешать записи.
package cli

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/exp/slog"

	"pm2dash/internal/app/server/crypto"
	"pm2dash/internal/config"
	"pm2dash/internal/domain/event"
	"pm2dash/internal/domain/session"
	"pm2dash/internal/domain/user"
	"pm2dash/internal/infrastructure/notify/discord"
	"pm2dash/internal/infrastructure/storage"
	"pm2dash/internal/infrastructure/storage/credfile"
)

type App struct {
	Users    user.Servicer
	Sessions session.Servicer // nil, если хранилище сессий недоступно

	log        *slog.Logger
	dispatcher *event.Dispatcher
	closers    []io.Closer
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
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

	dispatcher := event.NewDispatcher(log, 0, discord.New(cfg.Notify.DiscordWebhookURL, log))

	app := &App{
		Users: user.NewService(store, user.NewCredentialValidator(), dispatcher, log,
			user.WithLockoutPolicy(user.LockoutPolicy{
				MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
				Duration:          cfg.Auth.LockoutDuration,
			}),
		),
		log:        log,
		dispatcher: dispatcher,
	}

	// без сессий CLI продолжает работать, но не сможет закрыть чужие входы
	sessions, err := storage.OpenSessions(ctx, cfg, log)
	if err != nil {
		log.Warn("session storage unavailable, sessions will not be revoked", slog.String("error", err.Error()))
	} else {
		app.Sessions = session.NewService(sessions, cfg.Session.TTL, log)
		app.closers = append(app.closers, sessions)
	}

	return app, nil
}

// RevokeSessions закрывает сессии пользователя после удаления или смены пароля
func (a *App) RevokeSessions(ctx context.Context, username string) {
	if a.Sessions == nil {
		return
	}
	if err := a.Sessions.RevokeUser(ctx, username); err != nil {
		a.log.Warn("revoke sessions", slog.String("username", username), slog.String("error", err.Error()))
	}
}

// Close дожидается отправки уведомлений и закрывает хранилища
func (a *App) Close(ctx context.Context) error {
	if err := a.dispatcher.Close(ctx); err != nil {
		a.log.Warn("event dispatcher did not drain", slog.String("error", err.Error()))
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}
