package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pm2dash/internal/app/server/api/http/apierr"
	authmw "pm2dash/internal/app/server/api/http/middleware/auth"
	"pm2dash/internal/domain/session"
	"pm2dash/internal/domain/user"
)

type Handler struct {
	users        user.Servicer
	session      session.Servicer
	log          *slog.Logger
	cookieSecure bool
	cookieTTL    time.Duration

	public  huma.Middlewares
	private huma.Middlewares
}

func NewHandler(
	users user.Servicer,
	session session.Servicer,
	log *slog.Logger,
	cookieSecure bool,
	cookieTTL time.Duration,
	public, private huma.Middlewares,
) *Handler {
	return &Handler{
		users:        users,
		session:      session,
		log:          log.With(slog.String("component", "auth_handler")),
		cookieSecure: cookieSecure,
		cookieTTL:    cookieTTL,
		public:       public,
		private:      private,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.loginOp(), h.login)
	huma.Register(api, h.logoutOp(), h.logout)
	huma.Register(api, h.meOp(), h.me)
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*loginOutput, error) {
	id, err := h.users.ValidateUser(ctx, input.Body.Username, input.Body.Password, input.Origin)
	if err != nil {
		return nil, apierr.FromLogin(h.log, err)
	}

	token, err := h.session.Create(ctx, id, input.Origin)
	if err != nil {
		h.log.Error("create session", slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError(apierr.MsgInternal)
	}

	return &loginOutput{
		SetCookie: h.cookie(token, int(h.cookieTTL.Seconds())),
		Body:      LoginResponse{Token: token, User: id},
	}, nil
}

func (h *Handler) logout(ctx context.Context, _ *struct{}) (*logoutOutput, error) {
	if token, ok := authmw.GetToken(ctx); ok {
		if err := h.session.Revoke(ctx, token); err != nil {
			h.log.Error("revoke session", slog.String("error", err.Error()))
			return nil, huma.Error500InternalServerError(apierr.MsgInternal)
		}
	}

	return &logoutOutput{SetCookie: h.cookie("", -1)}, nil
}

func (h *Handler) me(ctx context.Context, _ *struct{}) (*meOutput, error) {
	sess, ok := authmw.GetSession(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	return &meOutput{Body: MeResponse{
		ID:        sess.UserID,
		Username:  sess.Username,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	}}, nil
}

func (h *Handler) cookie(value string, maxAge int) http.Cookie {
	return http.Cookie{
		Name:     authmw.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
