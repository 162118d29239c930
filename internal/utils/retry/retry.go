// Package retry masks transient storage contention with a bounded,
// linearly backed-off retry loop.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Config holds retry parameters.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultConfig matches observed recovery behavior under light contention:
// three attempts with a linearly growing wait between them.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
	}
}

// IsTransient reports whether err is a storage busy/locked condition that
// is expected to clear after a short wait.
func IsTransient(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}

// Do executes fn with default config.
func Do(ctx context.Context, fn func() error) error {
	return DoWithConfig(ctx, DefaultConfig(), fn)
}

// DoValue executes fn with default config, returning its value.
func DoValue[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	return DoValueWithConfig(ctx, DefaultConfig(), fn)
}

// DoWithConfig executes fn, retrying on transient contention. The wait
// before attempt n+1 is BaseDelay*n. Non-transient errors propagate
// immediately; after MaxAttempts the last error is returned unchanged.
func DoWithConfig(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoValueWithConfig(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoValueWithConfig is DoWithConfig for operations that return a value.
func DoValueWithConfig[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err = fn()
		if err == nil || !IsTransient(err) {
			return result, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(cfg.BaseDelay * time.Duration(attempt)):
		}
	}

	return result, err
}
