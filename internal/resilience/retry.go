// Package resilience holds the retry and circuit breaker helpers used around
// calls to the database and other external services.
package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/metrics"
)

// DefaultRetryableCodes are retried regardless of their HTTP status.
var DefaultRetryableCodes = []apperror.Code{
	apperror.CodeTimeout,
	apperror.CodeNetwork,
	apperror.CodeDatabase,
	apperror.CodeExternalService,
	apperror.CodeRateLimit,
}

// RetryOptions configures Retry. MaxRetries is the number of retries after the
// first attempt; zero disables retrying.
type RetryOptions struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RetryableCodes []apperror.Code
	OnRetry        func(err *apperror.Error, attempt int)

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(d time.Duration) time.Duration
}

// DefaultRetryOptions returns 3 retries, 1s base delay and 30s cap.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		RetryableCodes: DefaultRetryableCodes,
	}
}

func (o RetryOptions) withDefaults() RetryOptions {
	def := DefaultRetryOptions()
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = def.BaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = def.MaxDelay
	}
	if o.RetryableCodes == nil {
		o.RetryableCodes = def.RetryableCodes
	}
	if o.sleep == nil {
		o.sleep = sleepContext
	}
	if o.jitter == nil {
		o.jitter = tenPercentJitter
	}
	return o
}

// BackoffDelay returns min(base*2^attempt, max).
func BackoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 62 {
		return max
	}
	d := base << attempt
	if d <= 0 || d > max || d>>attempt != base {
		return max
	}
	return d
}

// Retryable reports whether err should be retried under codes.
func Retryable(err *apperror.Error, codes []apperror.Code) bool {
	return slices.Contains(codes, err.Code) || err.StatusCode >= http.StatusInternalServerError
}

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. An open circuit breaker ends the loop at once.
// Returned errors are always *apperror.Error.
func Retry(ctx context.Context, opts RetryOptions, op func(ctx context.Context) error) error {
	opts = opts.withDefaults()

	var last *apperror.Error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		last = apperror.Convert(err, "")

		if attempt == opts.MaxRetries || errors.Is(err, ErrCircuitOpen) || !Retryable(last, opts.RetryableCodes) {
			return last
		}

		metrics.RetryAttemptsTotal.WithLabelValues(string(last.Code)).Inc()
		if opts.OnRetry != nil {
			opts.OnRetry(last, attempt+1)
		}

		delay := BackoffDelay(opts.BaseDelay, opts.MaxDelay, attempt)
		if err := opts.sleep(ctx, delay+opts.jitter(delay)); err != nil {
			return apperror.Convert(err, "")
		}
	}
	return last
}

// Do is Retry for operations that produce a value.
func Do[T any](ctx context.Context, opts RetryOptions, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Retry(ctx, opts, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func tenPercentJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d)/10 + 1))
}
