package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"whatsapp-gateway/internal/domain"
)

// Dispatch metrics
var (
	// DispatchTotal counts /send-message outcomes
	// (sent, invalid, not_registered, not_ready, lookup_failed, send_failed).
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_dispatch_total",
			Help: "Send-message requests by outcome",
		},
		[]string{"outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_dispatch_duration_seconds",
			Help:    "Time spent in the registration check and send steps",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"step"},
	)
)

// Session metrics
var (
	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_session_events_total",
			Help: "Lifecycle events published by the session",
		},
		[]string{"event"},
	)

	// SessionReady is 1 while the session can send.
	SessionReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wa_session_ready",
			Help: "1 when the whatsapp session is ready, 0 otherwise",
		},
	)

	ViewersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wa_pairing_viewers_connected",
			Help: "Connected pairing page websocket viewers",
		},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wa_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

// ObserveSession records every lifecycle event until events is closed.
func ObserveSession(events <-chan domain.Event) {
	for ev := range events {
		SessionEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
		switch ev.Kind {
		case domain.EventReady:
			SessionReady.Set(1)
		case domain.EventDisconnected, domain.EventLoggedOut, domain.EventPairingExpired:
			SessionReady.Set(0)
		}
	}
	SessionReady.Set(0)
}
