package session

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, s Session) error
	// Get возвращает ErrInvalidSession, если записи нет или она истекла к моменту now
	Get(ctx context.Context, tokenHash string, now time.Time) (Session, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteByUsername(ctx context.Context, username string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
