package app

import (
	"net/http"
	"time"

	"sessiond/cmd/internal/auth/api"
	"sessiond/cmd/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routerDeps struct {
	log        Logger
	cfg        Config
	dbPool     *pgxpool.Pool
	auth       *api.Handler
	registry   *prometheus.Registry
	httpMetric *metrics.HTTP
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	if d.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(
		WithRequestID,
		WithTracing,
		func(next http.Handler) http.Handler { return WithRequestLogging(next, d.log, d.httpMetric) },
		middleware.Recoverer,
		WithSecurityHeaders,
		corsMiddleware(d.cfg.CORSAllowedOrigins),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.cfg.ReadinessRequireDB && d.dbPool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}
		if d.dbPool != nil {
			if err := PingDB(r.Context(), d.dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				d.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if d.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{Registry: d.registry}))
	}

	if d.auth != nil {
		d.auth.Routes(r)
	}
	return r
}
