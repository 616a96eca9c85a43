// Package app wires the sessiond runtime: config, logging, audit, metrics,
// the session manager and its HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessiond/cmd/internal/audit"
	"sessiond/cmd/internal/auth/api"
	"sessiond/cmd/internal/auth/session"
	"sessiond/cmd/internal/metrics"
	"sessiond/cmd/internal/operators"
	"sessiond/cmd/security/password"
	"sessiond/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

// App owns the process-wide session manager and everything hanging off it.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	audit     *audit.Dispatcher
	sessions  *session.Manager
	sweeper   *session.Sweeper
	operators *operators.Directory

	handler http.Handler
}

// New constructs a fully wired App. Nothing runs until Run is called.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.TokenHMACKey != "" {
		key, err := token.CheckHMACKey(cfg.TokenHMACKey, 0)
		if err != nil {
			return nil, err
		}
		token.SetFingerprintKey(key)
	}

	a := &App{cfg: cfg, log: log}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	writer, err := a.newAuditWriter(ctx)
	if err != nil {
		return nil, err
	}
	a.audit = audit.NewDispatcher(cfg.AuditConfig(), writer, log)
	if err := metrics.RegisterAudit(reg, a.audit); err != nil {
		a.closeResources(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}

	a.sessions, err = session.NewManager(cfg.SessionConfig(), log,
		session.WithAuditSink(a.audit),
		session.WithObserver(metrics.NewSessions(reg)),
	)
	if err != nil {
		a.closeResources(ctx)
		return nil, err
	}
	if err := metrics.RegisterStats(reg, a.sessions); err != nil {
		a.closeResources(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.sweeper = session.NewSweeper(a.sessions)

	a.operators, err = operators.Load(cfg.OperatorsFile, password.DefaultConfig(), log)
	if err != nil {
		a.closeResources(ctx)
		return nil, err
	}

	authHandler, err := api.NewHandler(log, cfg.AuthConfig(), a.sessions, a.operators, api.WithAuditSink(a.audit))
	if err != nil {
		a.closeResources(ctx)
		return nil, err
	}

	a.handler = newRouter(routerDeps{
		log:        log,
		cfg:        cfg,
		dbPool:     a.dbPool,
		auth:       authHandler,
		registry:   reg,
		httpMetric: metrics.NewHTTP(reg),
	})
	return a, nil
}

// newAuditWriter picks Postgres when a database is configured and the log
// otherwise.
func (a *App) newAuditWriter(ctx context.Context) (audit.Writer, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.audit_to_log")
		return audit.NewLogWriter(a.log), nil
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	w := audit.NewPostgresWriter(pool)
	if err := w.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: audit schema: %w", err)
	}
	a.dbPool = pool
	a.log.Info("db.enabled.audit_postgres")
	return w, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the sweeper and the HTTP server and blocks until ctx is
// cancelled or the server fails. SIGHUP reloads the operators file.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.sweeper.Start(ctx)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbPool != nil,
		"operators", a.operators.Len(),
		"fingerprint_hmac", token.HMACEnabled(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			a.log.Info("server.stop", "reason", "context_done")
			break loop
		case <-hup:
			if err := a.operators.Reload(); err != nil {
				a.log.Error("operators.reload.fail", "err", err)
			}
		case err := <-errCh:
			a.log.Error("server.fail", "err", err)
			runErr = err
			break loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if runErr == nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			runErr = err
		}
	}
	a.sweeper.Stop()
	a.closeResources(shutdownCtx)

	a.log.Info("server.stopped")
	return runErr
}

// Close releases resources of an App that was built but never run.
func (a *App) Close(ctx context.Context) {
	a.closeResources(ctx)
}

func (a *App) closeResources(ctx context.Context) {
	if a.audit != nil {
		if err := a.audit.Close(ctx); err != nil && !errors.Is(err, audit.ErrClosed) {
			a.log.Error("audit.close.fail", "err", err)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
