package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"pm2dash/internal/domain/user"
)

const tokenBytes = 32

type Servicer interface {
	Create(ctx context.Context, id user.Identity, origin string) (string, error)
	Validate(ctx context.Context, token string) (Session, error)
	Revoke(ctx context.Context, token string) error
	RevokeUser(ctx context.Context, username string) error
	Purge(ctx context.Context) (int64, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
	ttl  time.Duration
	now  func() time.Time
}

func NewService(repo Repository, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "session_service")),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *Service) Create(ctx context.Context, id user.Identity, origin string) (string, error) {
	// Генерация токена
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := s.now().UTC()
	sess := Session{
		TokenHash: hashToken(token),
		UserID:    id.ID,
		Username:  id.Username,
		Role:      string(id.Role),
		Origin:    origin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	return token, nil
}

func (s *Service) Validate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidSession
	}

	sess, err := s.repo.Get(ctx, hashToken(token), s.now().UTC())
	if errors.Is(err, ErrInvalidSession) {
		return Session{}, ErrInvalidSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	return sess, nil
}

func (s *Service) Revoke(ctx context.Context, token string) error {
	if err := s.repo.Delete(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeUser закрывает все сессии пользователя (удаление, смена пароля)
func (s *Service) RevokeUser(ctx context.Context, username string) error {
	n, err := s.repo.DeleteByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	if n > 0 {
		s.log.Info("sessions revoked", slog.String("username", username), slog.Int64("count", n))
	}
	return nil
}

func (s *Service) Purge(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
