package user

import (
	"context"
)

// Mutation получает полный список учетных записей и возвращает новый.
// Ошибка отменяет запись; ErrNoChange отменяет запись без ошибки для вызывающего.
type Mutation func(users []User) ([]User, error)

// Repository - хранилище всего документа учетных записей целиком.
// Update обязан выполнять чтение-изменение-запись атомарно относительно других Update.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, fn Mutation) error
}
