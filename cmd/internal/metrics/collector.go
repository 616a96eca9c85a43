package metrics

import (
	"sessiond/cmd/internal/auth/session"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is satisfied by *session.Manager.
type StatsSource interface {
	Stats() session.Stats
}

// statsCollector reads session counts at scrape time.
type statsCollector struct {
	src        StatsSource
	sessions   *prometheus.Desc
	inactivity *prometheus.Desc
	lifetime   *prometheus.Desc
}

// RegisterStats registers gauges computed from src.Stats on every scrape.
func RegisterStats(reg prometheus.Registerer, src StatsSource) error {
	return reg.Register(&statsCollector{
		src: src,
		sessions: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "sessions"),
			"Stored sessions by state (live, dead). Dead sessions await the sweeper.",
			[]string{"state"}, nil,
		),
		inactivity: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "session_inactivity_timeout_seconds"),
			"Configured inactivity window.",
			nil, nil,
		),
		lifetime: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "session_max_lifetime_seconds"),
			"Configured absolute lifetime cap.",
			nil, nil,
		),
	})
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessions
	ch <- c.inactivity
	ch <- c.lifetime
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(st.Live), "live")
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(st.DeadNotYetSwept), "dead")
	ch <- prometheus.MustNewConstMetric(c.inactivity, prometheus.GaugeValue, st.InactivityTimeout.Seconds())
	ch <- prometheus.MustNewConstMetric(c.lifetime, prometheus.GaugeValue, st.MaxLifetime.Seconds())
}

// AuditSource is satisfied by *audit.Dispatcher.
type AuditSource interface {
	Dropped() uint64
	Written() uint64
	WriteFailures() uint64
}

// RegisterAudit exposes dispatcher counters.
func RegisterAudit(reg prometheus.Registerer, src AuditSource) error {
	counters := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "audit",
			Name:      "events_dropped_total",
			Help:      "Audit events discarded because the queue was full or closed.",
		}, func() float64 { return float64(src.Dropped()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "audit",
			Name:      "events_written_total",
			Help:      "Audit events delivered to the writer.",
		}, func() float64 { return float64(src.Written()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "audit",
			Name:      "write_failures_total",
			Help:      "Failed audit batch writes.",
		}, func() float64 { return float64(src.WriteFailures()) }),
	}
	for _, c := range counters {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
