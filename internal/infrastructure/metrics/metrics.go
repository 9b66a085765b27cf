// Package metrics считает события аутентификации для Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pm2dash/internal/domain/event"
)

// Recorder реализует event.Sink и хранит собственный реестр метрик
type Recorder struct {
	registry *prometheus.Registry

	AuthEvents *prometheus.CounterVec
	Lockouts   prometheus.Counter
}

var _ event.Sink = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pm2dash",
				Name:      "auth_events_total",
				Help:      "Total count of authentication and account lifecycle events by outcome",
			},
			[]string{"outcome"},
		),
		Lockouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pm2dash",
				Name:      "account_lockouts_total",
				Help:      "Total count of accounts locked after too many failed attempts",
			},
		),
	}

	r.registry.MustRegister(
		r.AuthEvents,
		r.Lockouts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

func (r *Recorder) Send(_ context.Context, ev event.Event) error {
	r.AuthEvents.WithLabelValues(string(ev.Outcome)).Inc()
	if ev.Outcome == event.OutcomeAccountLocked {
		r.Lockouts.Inc()
	}
	return nil
}

// Handler отдает метрики в формате Prometheus
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
