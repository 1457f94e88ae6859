package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "fbsaver/pkg/errors"
)

func fastConfig(maxAttempts int) *Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = maxAttempts
	cfg.Backoff = &ConstantBackoff{Delay: time.Millisecond}
	return cfg
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, fastConfig(3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "flaky"}
		}
		return nil
	}, fastConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "down"}
	}, fastConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retry attempts")
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	authErr := &errs.Error{Type: errs.ErrorTypeAuth, Message: "bad session"}
	err := Do(func() error {
		calls++
		return authErr
	}, fastConfig(5))

	require.ErrorIs(t, err, authErr)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(func() (string, error) {
		calls++
		if calls < 2 {
			return "", &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "slow down"}
		}
		return "done", nil
	}, fastConfig(3))

	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 2, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastConfig(0)
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Second}

	err := Do(func() error {
		return fmt.Errorf("always failing")
	}, cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
}

func TestDoOnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_ = Do(func() error {
		return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "nope"}
	}, cfg)

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.True(t, DefaultRetryIf(&errs.Error{Type: errs.ErrorTypeNetwork}))
	assert.True(t, DefaultRetryIf(&errs.Error{Type: errs.ErrorTypeRateLimit}))
	assert.False(t, DefaultRetryIf(&errs.Error{Type: errs.ErrorTypeAuth}))
	assert.False(t, DefaultRetryIf(&errs.Error{Type: errs.ErrorTypeOperationNotFound}))
	assert.False(t, DefaultRetryIf(context.Canceled))
	// unknown plain errors default to retryable
	assert.True(t, DefaultRetryIf(fmt.Errorf("who knows")))
}

func TestExponentialBackoffGrowth(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   40 * time.Millisecond,
		Multiplier: 2.0,
	}

	assert.Equal(t, 10*time.Millisecond, eb.NextDelay(1))
	assert.Equal(t, 20*time.Millisecond, eb.NextDelay(2))
	assert.Equal(t, 40*time.Millisecond, eb.NextDelay(3))
	// capped
	assert.Equal(t, 40*time.Millisecond, eb.NextDelay(10))
	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
}

func TestWaitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, Wait(context.Background(), time.Millisecond))
}
