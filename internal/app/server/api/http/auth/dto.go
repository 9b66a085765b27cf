package auth

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"pm2dash/internal/app/server/api/http/middleware/ratelimit"
	"pm2dash/internal/domain/user"
)

type Credentials struct {
	Username string `json:"username" minLength:"1" maxLength:"64" doc:"Account name"`
	Password string `json:"password" minLength:"1" maxLength:"256" doc:"Account password"`
}

type loginInput struct {
	Body   Credentials
	Origin string
}

// Resolve запоминает адрес клиента (после realip)
func (i *loginInput) Resolve(ctx huma.Context) []error {
	i.Origin = ratelimit.ClientIP(ctx.RemoteAddr())
	return nil
}

type loginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      LoginResponse
}

type LoginResponse struct {
	Token string        `json:"token" doc:"Session token, also sent as an HttpOnly cookie"`
	User  user.Identity `json:"user"`
}

type logoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

type meOutput struct {
	Body MeResponse
}

type MeResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expiresAt" format:"date-time"`
}
