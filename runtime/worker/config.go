package worker

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config defines the polling and dispatch behavior of a Manager. Zero values
// are replaced with defaults.
type Config struct {
	// MaxTasks is the maximum number of tasks fetched per request.
	// Default: 10
	MaxTasks int

	// UsePriority fetches higher-priority tasks first.
	UsePriority bool

	// AsyncResponseTimeout enables long polling: the engine holds an empty
	// fetch open for up to this long. Zero disables long polling.
	AsyncResponseTimeout time.Duration

	// LockDuration is the lock taken on fetched tasks unless a subscription
	// sets its own.
	// Default: 20 seconds
	LockDuration time.Duration

	// MaxConcurrentHandlers bounds the handlers running at once.
	// Default: MaxTasks
	MaxConcurrentHandlers int

	// FetchRateLimit caps fetch requests per second. Zero is unlimited.
	FetchRateLimit float64

	// Backoff paces fetches that return nothing or fail.
	Backoff BackoffConfig

	// ShutdownTimeout bounds how long Stop waits for running handlers before
	// cancelling their context.
	// Default: 10 seconds
	ShutdownTimeout time.Duration
}

// BackoffConfig configures the exponential backoff between idle or failed
// fetches. The delay resets whenever a fetch returns tasks.
type BackoffConfig struct {
	// Default: 500 milliseconds
	InitialInterval time.Duration
	// Default: 60 seconds
	MaxInterval time.Duration
	// Default: 2
	Multiplier float64
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		MaxTasks:     10,
		LockDuration: 20 * time.Second,
		Backoff: BackoffConfig{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     60 * time.Second,
			Multiplier:      2,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// withDefaults validates c and returns a copy with defaults filled in.
func (c *Config) withDefaults() (*Config, error) {
	defaults := DefaultConfig()
	if c == nil {
		return defaults, nil
	}
	if c.MaxTasks < 0 {
		return nil, fmt.Errorf("invalid worker config: MaxTasks must be non-negative, got %d", c.MaxTasks)
	}
	if c.MaxConcurrentHandlers < 0 {
		return nil, fmt.Errorf(
			"invalid worker config: MaxConcurrentHandlers must be non-negative, got %d", c.MaxConcurrentHandlers)
	}
	if c.AsyncResponseTimeout < 0 || c.LockDuration < 0 || c.FetchRateLimit < 0 {
		return nil, fmt.Errorf("invalid worker config: durations and rate limit must be non-negative")
	}
	if c.Backoff.Multiplier != 0 && c.Backoff.Multiplier < 1 {
		return nil, fmt.Errorf("invalid worker config: backoff multiplier must be at least 1, got %v", c.Backoff.Multiplier)
	}

	out := *c
	if out.MaxTasks == 0 {
		out.MaxTasks = defaults.MaxTasks
	}
	if out.MaxConcurrentHandlers == 0 {
		out.MaxConcurrentHandlers = out.MaxTasks
	}
	if out.LockDuration == 0 {
		out.LockDuration = defaults.LockDuration
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if out.Backoff.InitialInterval == 0 {
		out.Backoff.InitialInterval = defaults.Backoff.InitialInterval
	}
	if out.Backoff.MaxInterval == 0 {
		out.Backoff.MaxInterval = defaults.Backoff.MaxInterval
	}
	if out.Backoff.Multiplier == 0 {
		out.Backoff.Multiplier = defaults.Backoff.Multiplier
	}
	return &out, nil
}

func (b BackoffConfig) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.InitialInterval
	bo.MaxInterval = b.MaxInterval
	bo.Multiplier = b.Multiplier
	bo.Reset()
	return bo
}
