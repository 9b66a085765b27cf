package user

import (
	"time"

	"pm2dash/internal/domain/user"
)

// View - учетная запись без хэша пароля
type View struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Role           user.Role  `json:"role" enum:"admin,user"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	FailedAttempts int        `json:"failedAttempts"`
	LockedUntil    *time.Time `json:"lockedUntil,omitempty"`
	Locked         bool       `json:"locked"`
}

func toView(u user.User, now time.Time) View {
	return View{
		ID:             u.ID,
		Username:       u.Username,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
		LastLogin:      u.LastLogin,
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    u.LockedUntil,
		Locked:         u.IsLocked(now),
	}
}

type listOutput struct {
	Body []View
}

type CreateRequest struct {
	Username string    `json:"username" doc:"Account name"`
	Password string    `json:"password" doc:"Initial password"`
	Role     user.Role `json:"role,omitempty" enum:"admin,user" default:"user" doc:"Defaults to user"`
}

type createInput struct {
	Body CreateRequest
}

type createOutput struct {
	Body View
}

type deleteInput struct {
	Username string `path:"username"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type changePasswordInput struct {
	Username string `path:"username"`
	Body     ChangePasswordRequest
}
