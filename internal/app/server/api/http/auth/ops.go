package auth

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) loginOp() huma.Operation {
	return huma.Operation{
		OperationID:   "auth-login",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/login",
		Summary:       "Log in",
		Description:   "Checks credentials, counts failed attempts and opens a session",
		Tags:          []string{"auth"},
		Middlewares:   h.public,
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusUnauthorized, http.StatusLocked, http.StatusTooManyRequests},
	}
}

func (h *Handler) logoutOp() huma.Operation {
	return huma.Operation{
		OperationID:   "auth-logout",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/logout",
		Summary:       "Log out",
		Tags:          []string{"auth"},
		Middlewares:   h.private,
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) meOp() huma.Operation {
	return huma.Operation{
		OperationID: "auth-me",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current session",
		Tags:        []string{"auth"},
		Middlewares: h.private,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
