package retry

import (
	"context"
	"testing"
	"time"

	"github.com/precachefs/precachefs/pkg/errors"
)

func TestRetryerSuccess(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	retryer := New(config)

	attempts := 0
	err := retryer.Do(context.Background(), func() error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Do() error = %v, want nil", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryerRetryableError(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	config.InitialDelay = 10 * time.Millisecond
	config.Jitter = false
	retryer := New(config)

	attempts := 0
	err := retryer.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.NewError(errors.ErrCodeConnectionTimeout, "connection timeout")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Do() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryerNonRetryableError(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	config.InitialDelay = 10 * time.Millisecond
	retryer := New(config)

	attempts := 0
	err := retryer.Do(context.Background(), func() error {
		attempts++
		return errors.NewError(errors.ErrCodeObjectNotFound, "object not found")
	})

	if err == nil {
		t.Fatal("Do() error = nil, want non-nil for a non-retryable error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on a non-retryable error)", attempts)
	}
}

func TestRetryerExhaustsAttempts(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	config.InitialDelay = 10 * time.Millisecond
	config.Jitter = false
	retryer := New(config)

	attempts := 0
	err := retryer.Do(context.Background(), func() error {
		attempts++
		return errors.NewError(errors.ErrCodeConnectionTimeout, "still down")
	})

	if err == nil {
		t.Fatal("Do() error = nil, want non-nil after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryerContextCanceled(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 5
	config.InitialDelay = 50 * time.Millisecond
	retryer := New(config)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := retryer.Do(ctx, func() error {
		attempts++
		return errors.NewError(errors.ErrCodeConnectionTimeout, "slow failure")
	})

	if err == nil {
		t.Fatal("Do() error = nil, want non-nil after context cancellation")
	}
	if attempts >= config.MaxAttempts {
		t.Errorf("attempts = %d, want fewer than MaxAttempts since ctx was canceled early", attempts)
	}
}

func TestFromNetworkConfigDefaults(t *testing.T) {
	cfg := FromNetworkConfig(0, 0, 0)
	if cfg.MaxAttempts != DefaultConfig().MaxAttempts {
		t.Errorf("MaxAttempts = %d, want default", cfg.MaxAttempts)
	}
}

func TestFromNetworkConfigOverrides(t *testing.T) {
	cfg := FromNetworkConfig(7, 2*time.Second, time.Minute)
	if cfg.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 2*time.Second {
		t.Errorf("InitialDelay = %v, want 2s", cfg.InitialDelay)
	}
	if cfg.MaxDelay != time.Minute {
		t.Errorf("MaxDelay = %v, want 1m", cfg.MaxDelay)
	}
}
