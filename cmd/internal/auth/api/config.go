package api

import (
	"net/http"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	TrustProxy   bool
	MaxBodyBytes int64

	// LoginRatePerMinute and LoginBurst bound login attempts per client IP.
	// A non-positive rate disables throttling.
	LoginRatePerMinute float64
	LoginBurst         int
	// LimiterIdleTTL is how long an idle per-IP limiter is kept.
	LimiterIdleTTL time.Duration
}

// DefaultConfig returns safe defaults: secure, HttpOnly, SameSite=Lax cookie
// named "sid" and 10 logins per minute per IP with a burst of 5.
func DefaultConfig() Config {
	return Config{
		CookieName:         "sid",
		CookiePath:         "/",
		CookieSecure:       true,
		CookieSameSite:     http.SameSiteLaxMode,
		MaxBodyBytes:       1 << 20, // 1 MiB
		LoginRatePerMinute: 10,
		LoginBurst:         5,
		LimiterIdleTTL:     10 * time.Minute,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	c.CookieName = strings.TrimSpace(c.CookieName)
	if c.CookieName == "" {
		c.CookieName = def.CookieName
	}
	if c.CookiePath == "" {
		c.CookiePath = def.CookiePath
	}
	if c.CookieSameSite == 0 {
		c.CookieSameSite = def.CookieSameSite
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.LoginBurst <= 0 {
		c.LoginBurst = def.LoginBurst
	}
	if c.LimiterIdleTTL <= 0 {
		c.LimiterIdleTTL = def.LimiterIdleTTL
	}
	return c
}
