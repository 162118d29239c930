package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = sqlite3.Error{Code: sqlite3.ErrBusy}

func TestTransientRetriedUpToLimit(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond}

	attempts := 0
	err := DoWithConfig(context.Background(), cfg, func() error {
		attempts++
		return errBusy
	})
	require.Error(t, err)
	assert.ErrorAs(t, err, &sqlite3.Error{})
	assert.Equal(t, 3, attempts)
}

func TestTransientRecovers(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond}

	attempts := 0
	err := DoWithConfig(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errBusy
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestNonTransientFailsImmediately(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond}

	boom := errors.New("constraint violated")
	attempts := 0
	err := DoWithConfig(context.Background(), cfg, func() error {
		attempts++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestLinearBackoff(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond}

	start := time.Now()
	_ = DoWithConfig(context.Background(), cfg, func() error {
		return errBusy
	})
	// Waits of 1x and 2x the base delay between the three attempts.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestContextCancelsWait(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- DoWithConfig(ctx, cfg, func() error {
			return errBusy
		})
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestDoValueReturnsValue(t *testing.T) {
	v, err := DoValueWithConfig(context.Background(), Config{MaxAttempts: 2, BaseDelay: time.Millisecond}, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, IsTransient(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.False(t, IsTransient(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, IsTransient(errors.New("other")))
	assert.False(t, IsTransient(nil))
}
