package health

import (
	"context"
	"sort"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Checker - зависимость, без которой сервис считается неработоспособным
type Checker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log        *slog.Logger
	middleware huma.Middlewares
	checks     map[string]Checker
}

func NewHandler(log *slog.Logger, middleware huma.Middlewares, checks map[string]Checker) *Handler {
	return &Handler{
		log:        log,
		middleware: middleware,
		checks:     checks,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	resp := Response{Status: "OK", Checks: make(map[string]string, len(h.checks))}

	var failed []string
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			h.log.Error("health check failed", slog.String("check", name), slog.String("error", err.Error()))
			resp.Checks[name] = "unavailable"
			failed = append(failed, name)
			continue
		}
		resp.Checks[name] = "OK"
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		return nil, huma.Error503ServiceUnavailable(strings.Join(failed, ", ") + " unavailable")
	}

	return &Output{Body: resp}, nil
}
