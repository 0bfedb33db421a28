package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
)

// recordSleeps replaces the real sleep so tests run instantly.
func recordSleeps(opts *RetryOptions) *[]time.Duration {
	var slept []time.Duration
	opts.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	opts.jitter = func(time.Duration) time.Duration { return 0 }
	return &slept
}

func TestBackoffDelay(t *testing.T) {
	base, max := time.Second, 30*time.Second
	assert.Equal(t, time.Second, BackoffDelay(base, max, 0))
	assert.Equal(t, 2*time.Second, BackoffDelay(base, max, 1))
	assert.Equal(t, 4*time.Second, BackoffDelay(base, max, 2))
	assert.Equal(t, 16*time.Second, BackoffDelay(base, max, 4))
	assert.Equal(t, max, BackoffDelay(base, max, 5))
	assert.Equal(t, max, BackoffDelay(base, max, 200))
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	opts := DefaultRetryOptions()
	slept := recordSleeps(&opts)

	var notified []int
	opts.OnRetry = func(_ *apperror.Error, attempt int) { notified = append(notified, attempt) }

	calls := 0
	err := Retry(context.Background(), opts, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("network unreachable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	assert.Equal(t, []int{1, 2}, notified)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	opts := DefaultRetryOptions()
	slept := recordSleeps(&opts)

	calls := 0
	err := Retry(context.Background(), opts, func(context.Context) error {
		calls++
		return errors.New("database connection lost")
	})

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeDatabase, appErr.Code)
	assert.Equal(t, 4, calls)
	assert.Len(t, *slept, 3)
}

func TestRetry_DoesNotRetryClientErrors(t *testing.T) {
	opts := DefaultRetryOptions()
	slept := recordSleeps(&opts)

	calls := 0
	err := Retry(context.Background(), opts, func(context.Context) error {
		calls++
		return apperror.Validation("bad input", "email", nil)
	})

	assert.ErrorIs(t, err, apperror.Validation("", "", nil))
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestRetry_RetriesServerErrorsOutsideAllowList(t *testing.T) {
	opts := DefaultRetryOptions()
	opts.RetryableCodes = []apperror.Code{}
	recordSleeps(&opts)

	calls := 0
	_ = Retry(context.Background(), opts, func(context.Context) error {
		calls++
		return apperror.Internal("boom", nil)
	})
	assert.Equal(t, 4, calls)
}

func TestRetry_ZeroMaxRetriesRunsOnce(t *testing.T) {
	opts := RetryOptions{MaxRetries: 0}
	recordSleeps(&opts)

	calls := 0
	err := Retry(context.Background(), opts, func(context.Context) error {
		calls++
		return errors.New("network unreachable")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := DefaultRetryOptions()
	opts.BaseDelay = time.Hour
	opts.jitter = func(time.Duration) time.Duration { return 0 }

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, opts, func(context.Context) error {
			calls++
			return errors.New("network unreachable")
		})
	}()
	cancel()

	select {
	case err := <-done:
		var appErr *apperror.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeCancelled, appErr.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	opts := DefaultRetryOptions()
	recordSleeps(&opts)

	calls := 0
	v, err := Do(context.Background(), opts, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("timeout talking to stripe")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestTenPercentJitter(t *testing.T) {
	for range 100 {
		j := tenPercentJitter(time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 100*time.Millisecond)
	}
	assert.Zero(t, tenPercentJitter(0))
}
