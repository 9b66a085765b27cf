package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slog"

	"pm2dash/internal/config"
	"pm2dash/internal/domain/session"
	"pm2dash/internal/infrastructure/storage/postgres"
	"pm2dash/internal/infrastructure/storage/sqlite"
)

type conn interface {
	io.Closer
	Ping(ctx context.Context) error
}

// Sessions - хранилище сессий вместе с соединением к базе
type Sessions struct {
	session.Repository
	conn
	Backend string
}

// IsPostgres - DATABASE_URI указывает на PostgreSQL
func IsPostgres(uri string) bool {
	return strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://")
}

// OpenSessions выбирает PostgreSQL при заданном DATABASE_URI, иначе sqlite в каталоге данных
func OpenSessions(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Sessions, error) {
	uri := cfg.DB.DatabaseURI

	switch {
	case uri == "":
		if err := os.MkdirAll(cfg.Auth.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := sqlite.New(cfg.SessionsPath())
		if err != nil {
			return nil, fmt.Errorf("open sqlite sessions: %w", err)
		}
		return &Sessions{Repository: sqlite.NewSessionRepository(db, log), conn: db, Backend: "sqlite"}, nil

	case IsPostgres(uri):
		db, err := postgres.New(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("open postgres sessions: %w", err)
		}
		return &Sessions{Repository: postgres.NewSessionRepository(db, log), conn: db, Backend: "postgres"}, nil

	default:
		return nil, fmt.Errorf("unsupported DATABASE_URI scheme")
	}
}
