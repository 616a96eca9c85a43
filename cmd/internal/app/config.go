package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sessiond/cmd/internal/audit"
	"sessiond/cmd/internal/auth/api"
	"sessiond/cmd/internal/auth/session"
	"sessiond/cmd/security/token"

	"github.com/spf13/viper"
)

// minHMACKeyBytes is the shortest accepted SESSIOND_TOKEN_HMAC_KEY.
const minHMACKeyBytes = 32

// Config contains all runtime configuration loaded from the environment.
type Config struct {
	HTTPAddr  string `mapstructure:"SESSIOND_HTTP_ADDR"`
	LogLevel  string `mapstructure:"SESSIOND_LOG_LEVEL"`
	LogFormat string `mapstructure:"SESSIOND_LOG_FORMAT"`

	ReadHeaderTimeout time.Duration `mapstructure:"SESSIOND_HTTP_READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"SESSIOND_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"SESSIOND_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `mapstructure:"SESSIOND_HTTP_IDLE_TIMEOUT"`
	MaxHeaderBytes    int           `mapstructure:"SESSIOND_HTTP_MAX_HEADER_BYTES"`

	InactivityTimeout time.Duration `mapstructure:"SESSIOND_SESSION_INACTIVITY_TIMEOUT"`
	MaxLifetime       time.Duration `mapstructure:"SESSIOND_SESSION_MAX_LIFETIME"`
	CleanupInterval   time.Duration `mapstructure:"SESSIOND_SESSION_CLEANUP_INTERVAL"`
	Shards            int           `mapstructure:"SESSIOND_SESSION_SHARDS"`

	CookieName   string `mapstructure:"SESSIOND_COOKIE_NAME"`
	CookieSecure bool   `mapstructure:"SESSIOND_COOKIE_SECURE"`
	TrustProxy   bool   `mapstructure:"SESSIOND_TRUST_PROXY"`

	CORSAllowedOrigins []string `mapstructure:"SESSIOND_CORS_ALLOWED_ORIGINS"`

	// DatabaseURL enables the Postgres audit sink. Empty means audit events
	// go to the log only.
	DatabaseURL string `mapstructure:"SESSIOND_DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"SESSIOND_DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"SESSIOND_DB_MIN_CONNS"`
	// ReadinessRequireDB makes /readyz fail unless the database is configured.
	ReadinessRequireDB bool `mapstructure:"SESSIOND_READINESS_REQUIRE_DB"`

	AuditQueueSize     int           `mapstructure:"SESSIOND_AUDIT_QUEUE_SIZE"`
	AuditBatchSize     int           `mapstructure:"SESSIOND_AUDIT_BATCH_SIZE"`
	AuditFlushInterval time.Duration `mapstructure:"SESSIOND_AUDIT_FLUSH_INTERVAL"`

	OperatorsFile string `mapstructure:"SESSIOND_OPERATORS_FILE"`

	LoginRatePerMinute float64 `mapstructure:"SESSIOND_LOGIN_RATE_PER_MINUTE"`
	LoginBurst         int     `mapstructure:"SESSIOND_LOGIN_BURST"`

	// TokenHMACKey keys log fingerprints of session ids.
	TokenHMACKey string `mapstructure:"SESSIOND_TOKEN_HMAC_KEY"`
	// RequireTokenHMAC refuses to start without a TokenHMACKey of at least 32 bytes.
	RequireTokenHMAC bool `mapstructure:"SESSIOND_REQUIRE_TOKEN_HMAC"`
}

var defaults = map[string]any{
	"SESSIOND_HTTP_ADDR":                  "0.0.0.0:8080",
	"SESSIOND_LOG_LEVEL":                  "info",
	"SESSIOND_LOG_FORMAT":                 "json",
	"SESSIOND_HTTP_READ_HEADER_TIMEOUT":   "5s",
	"SESSIOND_HTTP_READ_TIMEOUT":          "15s",
	"SESSIOND_HTTP_WRITE_TIMEOUT":         "15s",
	"SESSIOND_HTTP_IDLE_TIMEOUT":          "60s",
	"SESSIOND_HTTP_MAX_HEADER_BYTES":      1 << 20,
	"SESSIOND_SESSION_INACTIVITY_TIMEOUT": session.DefaultInactivityTimeout.String(),
	"SESSIOND_SESSION_MAX_LIFETIME":       session.DefaultMaxLifetime.String(),
	"SESSIOND_SESSION_CLEANUP_INTERVAL":   session.DefaultCleanupInterval.String(),
	"SESSIOND_SESSION_SHARDS":             session.DefaultShardCount,
	"SESSIOND_COOKIE_NAME":                "sid",
	"SESSIOND_COOKIE_SECURE":              true,
	"SESSIOND_TRUST_PROXY":                false,
	"SESSIOND_CORS_ALLOWED_ORIGINS":       "",
	"SESSIOND_DATABASE_URL":               "",
	"SESSIOND_DB_MAX_CONNS":               10,
	"SESSIOND_DB_MIN_CONNS":               0,
	"SESSIOND_READINESS_REQUIRE_DB":       false,
	"SESSIOND_AUDIT_QUEUE_SIZE":           audit.DefaultQueueSize,
	"SESSIOND_AUDIT_BATCH_SIZE":           audit.DefaultBatchSize,
	"SESSIOND_AUDIT_FLUSH_INTERVAL":       audit.DefaultFlushInterval.String(),
	"SESSIOND_OPERATORS_FILE":             "operators.yaml",
	"SESSIOND_LOGIN_RATE_PER_MINUTE":      10,
	"SESSIOND_LOGIN_BURST":                5,
	"SESSIOND_TOKEN_HMAC_KEY":             "",
	"SESSIOND_REQUIRE_TOKEN_HMAC":         false,
}

// LoadConfig reads .env (if present), then builds and validates Config from
// the environment. Environment variables override .env.
func LoadConfig() (Config, error) {
	return loadConfig(".env")
}

func loadConfig(envFile string) (Config, error) {
	v := viper.New()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // a missing .env is fine
	}
	v.AutomaticEnv()

	for k, def := range defaults {
		v.SetDefault(k, def)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: SESSIOND_HTTP_ADDR must be set")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("config: SESSIOND_LOG_FORMAT must be json or pretty, got %q", c.LogFormat)
	}
	if err := c.SessionConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.DBMinConns > c.DBMaxConns && c.DBMaxConns > 0 {
		return errors.New("config: SESSIOND_DB_MIN_CONNS exceeds SESSIOND_DB_MAX_CONNS")
	}
	if strings.TrimSpace(c.OperatorsFile) == "" {
		return errors.New("config: SESSIOND_OPERATORS_FILE must be set")
	}
	if c.RequireTokenHMAC {
		if _, err := token.CheckHMACKey(c.TokenHMACKey, minHMACKeyBytes); err != nil {
			switch {
			case errors.Is(err, token.ErrHMACKeyMissing):
				return errors.New("config: SESSIOND_REQUIRE_TOKEN_HMAC=true but SESSIOND_TOKEN_HMAC_KEY is missing")
			case errors.Is(err, token.ErrHMACKeyTooShort):
				return fmt.Errorf("config: SESSIOND_TOKEN_HMAC_KEY is too short (min %d bytes)", minHMACKeyBytes)
			default:
				return err
			}
		}
	}
	return nil
}

// SessionConfig returns the frozen session timing policy.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		InactivityTimeout: c.InactivityTimeout,
		MaxLifetime:       c.MaxLifetime,
		CleanupInterval:   c.CleanupInterval,
		Shards:            c.Shards,
	}
}

// AuthConfig returns the HTTP auth settings.
func (c Config) AuthConfig() api.Config {
	cfg := api.DefaultConfig()
	cfg.CookieName = c.CookieName
	cfg.CookieSecure = c.CookieSecure
	cfg.TrustProxy = c.TrustProxy
	cfg.LoginRatePerMinute = c.LoginRatePerMinute
	cfg.LoginBurst = c.LoginBurst
	return cfg
}

// AuditConfig returns the audit dispatcher sizing.
func (c Config) AuditConfig() audit.Config {
	return audit.Config{
		QueueSize:     c.AuditQueueSize,
		BatchSize:     c.AuditBatchSize,
		FlushInterval: c.AuditFlushInterval,
	}
}

// splitList trims entries and drops blanks. Viper hands over a single
// comma-joined element when the value comes from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
