// GET  /api/v1/health                          # Состояние сервиса (публичный)
// POST /api/v1/auth/login                      # Вход (публичный, ограничение частоты)
// POST /api/v1/auth/logout                     # Выход (auth)
// GET  /api/v1/auth/me                         # Текущая сессия (auth)
// GET  /api/v1/users                           # Список учетных записей (admin)
// POST /api/v1/users                           # Создание учетной записи (admin)
// DELETE /api/v1/users/{username}              # Удаление учетной записи (admin)
// POST /api/v1/users/{username}/password       # Смена пароля (сам пользователь или admin)
// GET  /metrics                                # Prometheus

package api

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"

	authAPI "pm2dash/internal/app/server/api/http/auth"
	healthAPI "pm2dash/internal/app/server/api/http/health"
	"pm2dash/internal/app/server/api/http/middleware/auth"
	"pm2dash/internal/app/server/api/http/middleware/logger"
	"pm2dash/internal/app/server/api/http/middleware/ratelimit"
	"pm2dash/internal/app/server/api/http/middleware/realip"
	userAPI "pm2dash/internal/app/server/api/http/user"
	"pm2dash/internal/domain/session"
	"pm2dash/internal/domain/user"
)

type Deps struct {
	Users        user.Servicer
	Sessions     session.Servicer
	Checks       map[string]healthAPI.Checker
	Metrics      http.Handler
	CookieSecure bool
	SessionTTL   time.Duration
	// TrustedProxies - пусто: адрес клиента берется только из TCP соединения
	TrustedProxies []netip.Prefix
}

type Handlers struct {
	Health *healthAPI.Handler
	Auth   *authAPI.Handler
	User   *userAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(middleware.RequestID, realip.New(deps.TrustedProxies).Handler, middleware.Recoverer)

	config := huma.DefaultConfig("pm2dash API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(API, deps, log)
	h.Health.SetupRoutes(API)
	h.Auth.SetupRoutes(API)
	h.User.SetupRoutes(API)

	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}

	return mux
}

func handlers(api huma.API, deps Deps, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log).Middleware()
	authMW := auth.New(api, deps.Sessions, log)
	limiter := ratelimit.New(api, ratelimit.DefaultRequests, ratelimit.DefaultInterval, log)

	public := huma.Middlewares{loggerMW}
	login := huma.Middlewares{loggerMW, limiter.Middleware()}
	private := huma.Middlewares{loggerMW, authMW.Middleware()}
	admin := huma.Middlewares{loggerMW, authMW.Middleware(), authMW.RequireAdmin()}

	return &Handlers{
		Health: healthAPI.NewHandler(log, public, deps.Checks),
		Auth:   authAPI.NewHandler(deps.Users, deps.Sessions, log, deps.CookieSecure, deps.SessionTTL, login, private),
		User:   userAPI.NewHandler(deps.Users, deps.Sessions, log, private, admin),
	}
}
