package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pm2dash/internal/domain/session"
)

// CookieName - cookie с токеном сессии
const CookieName = "pm2dash_session"

type Auth struct {
	api     huma.API
	session session.Servicer
	log     *slog.Logger
}

func New(api huma.API, session session.Servicer, log *slog.Logger) *Auth {
	return &Auth{
		api:     api,
		session: session,
		log:     log.With(slog.String("component", "auth_middleware")),
	}
}

type contextKey string

const (
	sessionKey contextKey = "session"
	tokenKey   contextKey = "token"
)

// Middleware пропускает запрос только с действующей сессией (cookie или Bearer)
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token := tokenFrom(ctx)
		if token == "" {
			a.unauthorized(ctx)
			return
		}

		sess, err := a.session.Validate(ctx.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrInvalidSession) {
				a.log.Error("session validation failed", slog.String("error", err.Error()))
			}
			a.unauthorized(ctx)
			return
		}

		newCtx := context.WithValue(ctx.Context(), sessionKey, sess)
		newCtx = context.WithValue(newCtx, tokenKey, token)

		next(huma.WithContext(ctx, newCtx))
	}
}

// RequireAdmin ставится после Middleware
func (a *Auth) RequireAdmin() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		sess, ok := GetSession(ctx.Context())
		if !ok || !sess.IsAdmin() {
			_ = huma.WriteErr(a.api, ctx, http.StatusForbidden, "Admin role required")
			return
		}
		next(ctx)
	}
}

func (a *Auth) unauthorized(ctx huma.Context) {
	_ = huma.WriteErr(a.api, ctx, http.StatusUnauthorized, "Unauthorized")
}

func tokenFrom(ctx huma.Context) string {
	if h := ctx.Header("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := huma.ReadCookie(ctx, CookieName); err == nil {
		return c.Value
	}
	return ""
}

func GetSession(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(session.Session)
	return sess, ok
}

func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}

// WithSession кладет сессию в контекст (для тестов обработчиков)
func WithSession(ctx context.Context, sess session.Session, token string) context.Context {
	ctx = context.WithValue(ctx, sessionKey, sess)
	return context.WithValue(ctx, tokenKey, token)
}
