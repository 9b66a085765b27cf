package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"pm2dash/internal/domain/session"
)

// Время хранится в unix-миллисекундах, чтобы сравнение шло по числам
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
	_, err := r.db.DB().ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, username, role, origin, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.TokenHash, s.UserID, s.Username, s.Role, s.Origin, s.CreatedAt.UnixMilli(), s.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, tokenHash string, now time.Time) (session.Session, error) {
	var (
		s                    = session.Session{TokenHash: tokenHash}
		createdAt, expiresAt int64
	)

	err := r.db.DB().QueryRowContext(ctx,
		`SELECT user_id, username, role, origin, created_at, expires_at FROM sessions
		 WHERE token_hash = ? AND expires_at > ?`,
		tokenHash, now.UnixMilli()).Scan(&s.UserID, &s.Username, &s.Role, &s.Origin, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrInvalidSession
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("select session: %w", err)
	}

	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	s.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	if _, err := r.db.DB().ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	res, err := r.db.DB().ExecContext(ctx, `DELETE FROM sessions WHERE username = ?`, username)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.DB().ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Debug("expired sessions purged", slog.Int64("count", n))
	}
	return n, nil
}
