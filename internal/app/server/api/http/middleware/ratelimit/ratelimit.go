package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

// Лимит входа по умолчанию: 100 запросов за 2 минуты с одного адреса
const (
	DefaultRequests = 100
	DefaultInterval = 2 * time.Minute

	idleTTL       = 10 * time.Minute
	sweepInterval = time.Minute
	// maxVisitors ограничивает память: при переполнении вытесняется самый старый адрес
	maxVisitors = 10000
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter ограничивает частоту запросов по адресу клиента
type Limiter struct {
	api   huma.API
	log   *slog.Logger
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func New(api huma.API, requests int, interval time.Duration, log *slog.Logger) *Limiter {
	if requests <= 0 {
		requests = DefaultRequests
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Limiter{
		api:      api,
		log:      log.With(slog.String("component", "rate_limiter")),
		limit:    rate.Every(interval / time.Duration(requests)),
		burst:    requests,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

func (l *Limiter) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		key := ClientIP(ctx.RemoteAddr())
		if !l.allow(key) {
			l.log.Warn("rate limit exceeded", slog.String("origin", key), slog.String("path", ctx.URL().Path))
			_ = huma.WriteErr(l.api, ctx, http.StatusTooManyRequests, "Too many requests, please try again later.")
			return
		}
		next(ctx)
	}
}

func (l *Limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	v, ok := l.visitors[key]
	if !ok {
		if len(l.visitors) >= maxVisitors {
			l.evictOldest()
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

func (l *Limiter) sweep(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleTTL {
			delete(l.visitors, k)
		}
	}
	l.lastSweep = now
}

func (l *Limiter) evictOldest() {
	var (
		oldest string
		seen   time.Time
	)
	for k, v := range l.visitors {
		if oldest == "" || v.lastSeen.Before(seen) {
			oldest, seen = k, v.lastSeen
		}
	}
	delete(l.visitors, oldest)
}

// ClientIP отрезает порт от RemoteAddr (после realip там может быть голый адрес)
func ClientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
