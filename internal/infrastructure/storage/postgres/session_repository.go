package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"pm2dash/internal/domain/session"
)

type SessionRepository struct {
	db  *Storage
	log *slog.Logger
}

var _ session.Repository = (*SessionRepository)(nil)

func NewSessionRepository(db *Storage, log *slog.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: log,
	}
}

func (r *SessionRepository) Create(ctx context.Context, s session.Session) error {
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO sessions (token_hash, user_id, username, role, origin, created_at, expires_at)
         VALUES (decode($1, 'hex'), $2, $3, $4, $5, $6, $7)`,
		s.TokenHash, s.UserID, s.Username, s.Role, s.Origin, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, tokenHash string, now time.Time) (session.Session, error) {
	s := session.Session{TokenHash: tokenHash}
	err := r.db.Pool().QueryRow(ctx,
		`SELECT user_id, username, role, origin, created_at, expires_at FROM sessions
         WHERE token_hash = decode($1, 'hex') AND expires_at > $2`,
		tokenHash, now).Scan(&s.UserID, &s.Username, &s.Role, &s.Origin, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Session{}, session.ErrInvalidSession
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("select session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE token_hash = decode($1, 'hex')`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE username = $1`, username)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		r.log.Debug("expired sessions purged", slog.Int64("count", n))
	}
	return tag.RowsAffected(), nil
}
