package session

import (
	"fmt"
	"time"
)

const (
	// DefaultInactivityTimeout is the sliding inactivity window.
	DefaultInactivityTimeout = 45 * time.Minute
	// DefaultMaxLifetime is the absolute lifetime cap measured from creation.
	DefaultMaxLifetime = 12 * time.Hour
	// DefaultCleanupInterval is the sweeper period.
	DefaultCleanupInterval = 5 * time.Minute
	// DefaultShardCount is the number of independently locked store shards.
	DefaultShardCount = 64

	maxShardCount = 4096
)

// Config defines the session timing policy and store sizing.
//
// It is fixed at construction: the Manager copies it and never mutates it.
type Config struct {
	// InactivityTimeout is the maximum gap allowed between two touches.
	InactivityTimeout time.Duration

	// MaxLifetime bounds a session from its creation, regardless of activity.
	// Neither refresh nor rotation extends it.
	MaxLifetime time.Duration

	// CleanupInterval is how often the background sweeper evicts dead sessions.
	CleanupInterval time.Duration

	// Shards is the number of store shards. Bulk scans lock one shard at a time.
	Shards int
}

// DefaultConfig returns the reference policy: 45m inactivity, 12h lifetime, 5m sweep.
func DefaultConfig() Config {
	return Config{
		InactivityTimeout: DefaultInactivityTimeout,
		MaxLifetime:       DefaultMaxLifetime,
		CleanupInterval:   DefaultCleanupInterval,
		Shards:            DefaultShardCount,
	}
}

// Validate reports whether the configuration is usable.
// Returned errors wrap ErrConfig.
func (c Config) Validate() error {
	if c.InactivityTimeout <= 0 {
		return fmt.Errorf("%w: inactivity timeout must be positive", ErrConfig)
	}
	if c.MaxLifetime <= 0 {
		return fmt.Errorf("%w: max lifetime must be positive", ErrConfig)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("%w: cleanup interval must be positive", ErrConfig)
	}
	// An inactivity window longer than the lifetime cap can never be reached.
	if c.InactivityTimeout > c.MaxLifetime {
		return fmt.Errorf("%w: inactivity timeout %s exceeds max lifetime %s", ErrConfig, c.InactivityTimeout, c.MaxLifetime)
	}
	if c.Shards < 0 || c.Shards > maxShardCount {
		return fmt.Errorf("%w: shards must be in [0..%d]", ErrConfig, maxShardCount)
	}
	return nil
}

func (c Config) shardCount() int {
	if c.Shards <= 0 {
		return DefaultShardCount
	}
	return c.Shards
}
