// Package discord отправляет события аутентификации в Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"pm2dash/internal/domain/event"
)

// Цвета embed
const (
	ColorSuccess = 0x00ff00
	ColorWarning = 0xffa500
	ColorError   = 0xff0000
	ColorInfo    = 0x00bfff
)

const defaultTimeout = 10 * time.Second

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields"`
	Timestamp   string  `json:"timestamp"`
}

type payload struct {
	Embeds []Embed `json:"embeds"`
}

// Notifier реализует event.Sink
type Notifier struct {
	webhookURL string
	client     *http.Client
	log        *slog.Logger
}

var _ event.Sink = (*Notifier)(nil)

func New(webhookURL string, log *slog.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: defaultTimeout},
		log:        log.With(slog.String("component", "discord")),
	}
}

// Enabled - задан ли адрес webhook
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

func (n *Notifier) Send(ctx context.Context, ev event.Event) error {
	if !n.Enabled() {
		n.log.Debug("discord webhook URL not configured, skipping notification")
		return nil
	}

	body, err := json.Marshal(payload{Embeds: []Embed{BuildEmbed(ev)}})
	if err != nil {
		return fmt.Errorf("marshal embed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// BuildEmbed переводит событие в embed Discord
func BuildEmbed(ev event.Event) Embed {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	e := Embed{
		Title:     ev.Title,
		Color:     colorFor(ev.Outcome),
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Fields:    []Field{{Name: "Username", Value: orUnknown(ev.Username), Inline: true}},
	}

	switch ev.Outcome {
	case event.OutcomeLoginSucceeded:
		e.Description = fmt.Sprintf("User %s logged in", ev.Username)
	case event.OutcomeLoginFailed:
		e.Description = fmt.Sprintf("Failed login attempt for %s", ev.Username)
	case event.OutcomeAccountLocked:
		e.Description = fmt.Sprintf("Account %s locked after too many failed attempts", ev.Username)
	case event.OutcomeLoginBlocked:
		e.Description = fmt.Sprintf("Login attempt for locked account %s", ev.Username)
	case event.OutcomeUserCreated:
		e.Description = fmt.Sprintf("User %s was created", ev.Username)
	case event.OutcomeUserDeleted:
		e.Description = fmt.Sprintf("User %s was deleted", ev.Username)
	case event.OutcomePasswordChanged:
		e.Description = fmt.Sprintf("Password changed for %s", ev.Username)
	}

	if ev.Origin != "" {
		e.Fields = append(e.Fields, Field{Name: "IP Address", Value: ev.Origin, Inline: true})
	}
	if ev.Role != "" {
		e.Fields = append(e.Fields, Field{Name: "Role", Value: ev.Role, Inline: true})
	}
	if ev.FailedAttempts > 0 {
		e.Fields = append(e.Fields, Field{Name: "Failed Attempts", Value: strconv.Itoa(ev.FailedAttempts), Inline: true})
	}
	if ev.LockedUntil != nil {
		e.Fields = append(e.Fields, Field{Name: "Locked Until", Value: ev.LockedUntil.UTC().Format(time.RFC3339), Inline: false})
	}

	return e
}

func colorFor(o event.Outcome) int {
	switch o {
	case event.OutcomeLoginSucceeded:
		return ColorSuccess
	case event.OutcomeLoginFailed:
		return ColorError
	case event.OutcomeAccountLocked, event.OutcomeLoginBlocked, event.OutcomeUserDeleted:
		return ColorWarning
	default:
		return ColorInfo
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
