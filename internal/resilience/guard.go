package resilience

import "context"

// Guard composes a circuit breaker with retries. Each attempt goes through
// the breaker; once the breaker rejects a call the guard fails fast instead
// of backing off.
type Guard struct {
	breaker *CircuitBreaker
	retry   RetryOptions
}

// NewGuard wraps breaker with the given retry policy.
func NewGuard(breaker *CircuitBreaker, retry RetryOptions) *Guard {
	return &Guard{breaker: breaker, retry: retry}
}

// Run executes op under the guard.
func (g *Guard) Run(ctx context.Context, op func(ctx context.Context) error) error {
	return Retry(ctx, g.retry, func(ctx context.Context) error {
		return g.breaker.Execute(ctx, op)
	})
}

// Call is Run for operations that produce a value.
func Call[T any](ctx context.Context, g *Guard, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Run(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Once executes op through the breaker without retrying. Use it for writes
// that are not safe to repeat.
func (g *Guard) Once(ctx context.Context, op func(ctx context.Context) error) error {
	return g.breaker.Execute(ctx, op)
}
