package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"pm2dash/internal/domain/event"
)

// HashCost - стоимость bcrypt для новых хэшей
const HashCost = bcrypt.DefaultCost

type Servicer interface {
	ValidateUser(ctx context.Context, username, password, origin string) (Identity, error)
	GetUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, username, password string, role Role) (User, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
	DeleteUser(ctx context.Context, username string) error
}

type Service struct {
	repo      Repository
	validator Validator
	events    event.Publisher
	log       *slog.Logger

	policy   LockoutPolicy
	hashCost int
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

type Option func(*Service)

func WithLockoutPolicy(p LockoutPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithHashCost меняет стоимость bcrypt (в тестах - bcrypt.MinCost)
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, validator Validator, events event.Publisher, log *slog.Logger, opts ...Option) *Service {
	if events == nil {
		events = event.Nop{}
	}

	s := &Service{
		repo:      repo,
		validator: validator,
		events:    events,
		log:       log.With(slog.String("component", "user_service")),
		policy:    DefaultLockoutPolicy(),
		hashCost:  HashCost,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ValidateUser проверяет учетные данные и ведет счетчик неудачных попыток.
// Неизвестный пользователь и неверный пароль неразличимы для вызывающего.
func (s *Service) ValidateUser(ctx context.Context, username, password, origin string) (Identity, error) {
	var (
		identity Identity
		authErr  error
		ev       event.Event
	)

	err := s.repo.Update(ctx, func(users []User) ([]User, error) {
		now := s.now()

		idx := indexOf(users, username)
		if idx < 0 {
			s.burnHash(password)
			authErr = ErrInvalidCredentials
			ev = event.Event{Title: "Failed Login Attempt", Outcome: event.OutcomeLoginFailed}
			return nil, ErrNoChange
		}

		u := &users[idx]

		if u.IsLocked(now) {
			until := *u.LockedUntil
			authErr = ErrAccountLocked
			ev = event.Event{
				Title:          "Account Locked",
				Outcome:        event.OutcomeLoginBlocked,
				FailedAttempts: u.FailedAttempts,
				LockedUntil:    &until,
			}
			return nil, ErrNoChange
		}

		expireLock(u, now)

		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			locked := s.policy.registerFailure(u, now)
			authErr = ErrInvalidCredentials
			ev = event.Event{
				Title:          "Failed Login Attempt",
				Outcome:        event.OutcomeLoginFailed,
				FailedAttempts: u.FailedAttempts,
			}
			if locked {
				until := *u.LockedUntil
				ev.Title = "Account Locked"
				ev.Outcome = event.OutcomeAccountLocked
				ev.LockedUntil = &until
			}
			return users, nil
		}

		registerSuccess(u, now)
		identity = u.Identity()
		ev = event.Event{
			Title:   "Successful Login",
			Outcome: event.OutcomeLoginSucceeded,
			Role:    string(u.Role),
		}
		return users, nil
	})
	if err != nil {
		s.log.Error("credential update failed", slog.String("op", "validate_user"), slog.String("error", err.Error()))
		return Identity{}, fmt.Errorf("validate user: %w", err)
	}

	ev.Username = username
	ev.Origin = origin
	s.events.Publish(ev)

	if authErr != nil {
		s.log.Info("login rejected",
			slog.String("username", username),
			slog.String("origin", origin),
			slog.String("outcome", string(ev.Outcome)),
		)
		return Identity{}, authErr
	}

	s.log.Info("login succeeded", slog.String("username", username), slog.String("origin", origin))
	return identity, nil
}

// GetUsers возвращает все учетные записи
func (s *Service) GetUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Service) CreateUser(ctx context.Context, username, password string, role Role) (User, error) {
	if err := s.validator.ValidateCreate(username, password, role); err != nil {
		s.log.Debug("validation failed", slog.String("username", username), slog.String("error", err.Error()))
		return User{}, invalidInput("create_user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	created := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}

	err = s.repo.Update(ctx, func(users []User) ([]User, error) {
		if indexOf(users, username) >= 0 {
			return nil, ErrDuplicateUsername
		}
		return append(users, created), nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return User{}, ErrDuplicateUsername
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user created", slog.String("username", username), slog.String("role", string(role)))
	s.events.Publish(event.Event{
		Title:    "User Created",
		Outcome:  event.OutcomeUserCreated,
		Username: username,
		Role:     string(role),
	})

	return created, nil
}

// ChangePassword не трогает счетчик неудачных попыток и блокировку
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if err := s.validator.ValidatePassword(newPassword); err != nil {
		return invalidInput("change_password", err)
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.repo.Update(ctx, func(users []User) ([]User, error) {
		idx := indexOf(users, username)
		if idx < 0 {
			return nil, ErrUserNotFound
		}

		u := &users[idx]
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
			return nil, ErrInvalidCredentials
		}

		u.PasswordHash = string(newHash)
		return users, nil
	})
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidCredentials):
		return err
	case err != nil:
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info("password changed", slog.String("username", username))
	s.events.Publish(event.Event{
		Title:    "Password Changed",
		Outcome:  event.OutcomePasswordChanged,
		Username: username,
	})

	return nil
}

// DeleteUser удаляет учетную запись; отсутствие записи ошибкой не считается
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	removed := false

	err := s.repo.Update(ctx, func(users []User) ([]User, error) {
		kept := users[:0]
		for _, u := range users {
			if u.Username == username {
				removed = true
				continue
			}
			kept = append(kept, u)
		}
		if !removed {
			return nil, ErrNoChange
		}
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if removed {
		s.log.Info("user deleted", slog.String("username", username))
		s.events.Publish(event.Event{
			Title:    "User Deleted",
			Outcome:  event.OutcomeUserDeleted,
			Username: username,
		})
	}

	return nil
}

// burnHash выравнивает время ответа для несуществующего пользователя
func (s *Service) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("pm2dash-timing-equalizer"), s.hashCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}
