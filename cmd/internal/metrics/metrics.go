// Package metrics exposes sessiond counters and gauges to Prometheus.
package metrics

import (
	"time"

	"sessiond/cmd/internal/auth/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "sessiond"

// Sessions implements session.Observer with Prometheus counters.
type Sessions struct {
	created       prometheus.Counter
	rotated       prometheus.Counter
	revoked       *prometheus.CounterVec
	expired       *prometheus.CounterVec
	swept         prometheus.Counter
	sweepDuration prometheus.Histogram
}

var _ session.Observer = (*Sessions)(nil)

// NewSessions registers the session lifecycle metrics on reg.
func NewSessions(reg prometheus.Registerer) *Sessions {
	factory := promauto.With(reg)

	return &Sessions{
		created: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created.",
		}),
		rotated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_rotated_total",
			Help:      "Session id rotations.",
		}),
		revoked: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_revoked_total",
			Help:      "Sessions revoked, by scope (single, all, others).",
		}, []string{"scope"}),
		expired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_expired_total",
			Help:      "Sessions found dead, by cause (inactivity, lifetime).",
		}, []string{"cause"}),
		swept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sweep_evicted_total",
			Help:      "Sessions evicted by the background sweeper.",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a sweeper pass.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}
}

// SessionCreated implements session.Observer.
func (m *Sessions) SessionCreated() { m.created.Inc() }

// SessionExpired implements session.Observer.
func (m *Sessions) SessionExpired(cause session.Cause) {
	m.expired.WithLabelValues(cause.String()).Inc()
}

// SessionRotated implements session.Observer.
func (m *Sessions) SessionRotated() { m.rotated.Inc() }

// SessionsRevoked implements session.Observer.
func (m *Sessions) SessionsRevoked(scope string, n int) {
	if n <= 0 {
		return
	}
	m.revoked.WithLabelValues(scope).Add(float64(n))
}

// SessionsSwept implements session.Observer.
func (m *Sessions) SessionsSwept(n int, elapsed time.Duration) {
	if n > 0 {
		m.swept.Add(float64(n))
	}
	m.sweepDuration.Observe(elapsed.Seconds())
}
