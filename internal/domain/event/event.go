// Package event описывает события аутентификации и их доставку во внешние каналы.
// Доставка всегда best-effort: ошибки получателей не влияют на решение об аутентификации.
package event

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeLoginSucceeded  Outcome = "login_succeeded"
	OutcomeLoginFailed     Outcome = "login_failed"
	OutcomeAccountLocked   Outcome = "account_locked"
	OutcomeLoginBlocked    Outcome = "login_blocked"
	OutcomeUserCreated     Outcome = "user_created"
	OutcomeUserDeleted     Outcome = "user_deleted"
	OutcomePasswordChanged Outcome = "password_changed"
)

// Event - структурированное событие для уведомлений
type Event struct {
	Title          string
	Outcome        Outcome
	Username       string
	Origin         string // адрес клиента, может быть пустым
	Role           string // может быть пустым
	FailedAttempts int
	LockedUntil    *time.Time
	Time           time.Time
}

// Publisher принимает события от доменных сервисов. Publish не должен блокироваться.
type Publisher interface {
	Publish(ev Event)
}

// Sink доставляет событие в конкретный канал (webhook, лог и т.д.)
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// Nop отбрасывает все события
type Nop struct{}

func (Nop) Publish(Event) {}
