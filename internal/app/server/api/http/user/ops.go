package user

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "users-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "Список учетных записей",
		Tags:        []string{"users"},
		Middlewares: h.admin,
		Security:    bearer,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "users-create",
		Method:        http.MethodPost,
		Path:          "/api/v1/users",
		Summary:       "Создание учетной записи",
		Tags:          []string{"users"},
		Middlewares:   h.admin,
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID:   "users-delete",
		Method:        http.MethodDelete,
		Path:          "/api/v1/users/{username}",
		Summary:       "Удаление учетной записи",
		Tags:          []string{"users"},
		Middlewares:   h.admin,
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}
}

func (h *Handler) changePasswordOp() huma.Operation {
	return huma.Operation{
		OperationID:   "users-change-password",
		Method:        http.MethodPost,
		Path:          "/api/v1/users/{username}/password",
		Summary:       "Смена пароля",
		Description:   "Доступно самому пользователю или администратору; требует текущий пароль",
		Tags:          []string{"users"},
		Middlewares:   h.private,
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}
}
