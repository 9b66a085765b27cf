package user

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pm2dash/internal/app/server/api/http/apierr"
	authmw "pm2dash/internal/app/server/api/http/middleware/auth"
	"pm2dash/internal/domain/session"
	"pm2dash/internal/domain/user"
)

type Handler struct {
	service user.Servicer
	session session.Servicer
	log     *slog.Logger
	now     func() time.Time

	// private - любая действующая сессия, admin - только администратор
	private huma.Middlewares
	admin   huma.Middlewares
}

func NewHandler(service user.Servicer, session session.Servicer, log *slog.Logger, private, admin huma.Middlewares) *Handler {
	return &Handler{
		service: service,
		session: session,
		log:     log.With(slog.String("component", "user_handler")),
		now:     time.Now,
		private: private,
		admin:   admin,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.deleteOp(), h.delete)
	huma.Register(api, h.changePasswordOp(), h.changePassword)
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	users, err := h.service.GetUsers(ctx)
	if err != nil {
		return nil, apierr.FromUser(h.log, err)
	}

	now := h.now()
	views := make([]View, 0, len(users))
	for _, u := range users {
		views = append(views, toView(u, now))
	}

	return &listOutput{Body: views}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*createOutput, error) {
	role := input.Body.Role
	if role == "" {
		role = user.RoleUser
	}

	u, err := h.service.CreateUser(ctx, input.Body.Username, input.Body.Password, role)
	if err != nil {
		return nil, apierr.FromUser(h.log, err)
	}

	return &createOutput{Body: toView(u, h.now())}, nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*struct{}, error) {
	if sess, ok := authmw.GetSession(ctx); ok && sess.Username == input.Username {
		return nil, huma.Error400BadRequest("You cannot delete your own account")
	}

	if err := h.service.DeleteUser(ctx, input.Username); err != nil {
		return nil, apierr.FromUser(h.log, err)
	}
	h.revokeSessions(ctx, input.Username)

	return nil, nil
}

func (h *Handler) changePassword(ctx context.Context, input *changePasswordInput) (*struct{}, error) {
	sess, ok := authmw.GetSession(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if sess.Username != input.Username && !sess.IsAdmin() {
		return nil, huma.Error403Forbidden("You can only change your own password")
	}

	err := h.service.ChangePassword(ctx, input.Username, input.Body.OldPassword, input.Body.NewPassword)
	if err != nil {
		return nil, apierr.FromUser(h.log, err)
	}
	h.revokeSessions(ctx, input.Username)

	return nil, nil
}

// revokeSessions - учетная запись уже изменена, поэтому ошибка только логируется
func (h *Handler) revokeSessions(ctx context.Context, username string) {
	if err := h.session.RevokeUser(ctx, username); err != nil {
		h.log.Error("revoke sessions", slog.String("username", username), slog.String("error", err.Error()))
	}
}
