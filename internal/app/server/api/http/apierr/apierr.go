// Package apierr переводит доменные ошибки в ответы huma.
// Подробности внутренних ошибок остаются в логах, клиенту уходит общий текст.
package apierr

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pm2dash/internal/domain/user"
)

const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgAccountLocked      = "Account is locked. Please try again later."
	MsgInternal           = "Internal server error"
)

// FromLogin - ошибки входа: неизвестный пользователь и неверный пароль неразличимы
func FromLogin(log *slog.Logger, err error) error {
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		return huma.Error401Unauthorized(MsgInvalidCredentials)
	case errors.Is(err, user.ErrAccountLocked):
		return huma.NewError(http.StatusLocked, MsgAccountLocked)
	default:
		return internal(log, err)
	}
}

// FromUser - ошибки операций над учетными записями
func FromUser(log *slog.Logger, err error) error {
	var de *user.DomainError
	switch {
	case errors.As(err, &de) && errors.Is(err, user.ErrInvalidInput):
		return huma.Error400BadRequest(de.Error())
	case errors.Is(err, user.ErrDuplicateUsername):
		return huma.Error409Conflict("Username already exists")
	case errors.Is(err, user.ErrUserNotFound):
		return huma.Error404NotFound("User not found")
	case errors.Is(err, user.ErrInvalidCredentials):
		return huma.Error400BadRequest("Current password is incorrect")
	default:
		return internal(log, err)
	}
}

func internal(log *slog.Logger, err error) error {
	log.Error("request failed", slog.String("error", err.Error()))
	return huma.Error500InternalServerError(MsgInternal)
}
