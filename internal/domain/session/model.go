package session

import (
	"errors"
	"time"

	"pm2dash/internal/domain/user"
)

// DefaultTTL - время жизни сессии по умолчанию
const DefaultTTL = 24 * time.Hour

// ErrInvalidSession - токен неизвестен, отозван или истек
var ErrInvalidSession = errors.New("invalid session")

// Session - серверная запись о входе. Сам токен не хранится, только его SHA-256.
type Session struct {
	TokenHash string
	UserID    string
	Username  string
	Role      string
	Origin    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) IsAdmin() bool {
	return s.Role == string(user.RoleAdmin)
}
