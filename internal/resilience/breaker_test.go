package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 9, 25, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errDown = errors.New("connection refused")

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	return NewCircuitBreaker("payments", BreakerOptions{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
		Now:              clock.Now,
	}, zerolog.Nop())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := newTestBreaker(newFakeClock())
	ctx := context.Background()

	for range 2 {
		assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
		assert.Equal(t, StateClosed, b.State())
	}
	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeExternalService, appErr.Code)
	assert.Equal(t, "payments", appErr.Context["service"])
	assert.Equal(t, "open", appErr.Context["circuit_breaker_state"])
	assert.Equal(t, 3, appErr.Context["failure_count"])
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(newFakeClock())
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	require.NoError(t, b.Execute(ctx, succeed))
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Status().FailureCount)
}

func TestBreaker_HalfOpenTrialCloses(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	ctx := context.Background()
	for range 3 {
		_ = b.Execute(ctx, fail)
	}

	clock.Advance(59 * time.Second)
	assert.ErrorIs(t, b.Execute(ctx, succeed), ErrCircuitOpen)

	clock.Advance(time.Second)
	require.NoError(t, b.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Status().FailureCount)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	ctx := context.Background()
	for range 3 {
		_ = b.Execute(ctx, fail)
	}
	clock.Advance(time.Minute)

	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Execute(ctx, succeed), ErrCircuitOpen)
}

func TestBreaker_AdmitsSingleHalfOpenTrial(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	ctx := context.Background()
	for range 3 {
		_ = b.Execute(ctx, fail)
	}
	clock.Advance(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.Equal(t, StateHalfOpen, b.State())
	assert.ErrorIs(t, b.Execute(ctx, succeed), ErrCircuitOpen)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ClientErrorsAreNotFailures(t *testing.T) {
	b := newTestBreaker(newFakeClock())
	ctx := context.Background()

	for range 5 {
		_ = b.Execute(ctx, func(context.Context) error {
			return apperror.NotFound("class", "c-1")
		})
		_ = b.Execute(ctx, func(context.Context) error { return context.Canceled })
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Status().FailureCount)
}

func TestBreaker_StatusReportsLastFailure(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	st := b.Status()
	assert.Equal(t, "payments", st.Name)
	assert.Equal(t, "closed", st.State)
	assert.Nil(t, st.LastFailureTime)

	_ = b.Execute(context.Background(), fail)
	st = b.Status()
	require.NotNil(t, st.LastFailureTime)
	assert.Equal(t, clock.Now(), *st.LastFailureTime)
}

func TestRegistry_Statuses(t *testing.T) {
	clock := newFakeClock()
	r := NewRegistry(BreakerOptions{FailureThreshold: 1, Now: clock.Now}, zerolog.Nop())

	assert.Same(t, r.Get("redis"), r.Get("redis"))
	_ = r.Get("database").Execute(context.Background(), fail)

	statuses := r.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "database", statuses[0].Service)
	assert.Equal(t, "open", statuses[0].Status)
	assert.NotEmpty(t, statuses[0].LastFailure)
	assert.Equal(t, "redis", statuses[1].Service)
	assert.Equal(t, "closed", statuses[1].Status)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestDependencyFailure(t *testing.T) {
	assert.False(t, DependencyFailure(nil))
	assert.False(t, DependencyFailure(context.Canceled))
	assert.False(t, DependencyFailure(fmt.Errorf("get class: %w", apperror.ErrNotFound)))
	assert.False(t, DependencyFailure(apperror.Conflict("dup", "booking")))
	assert.False(t, DependencyFailure(fmt.Errorf("sold out: %w", apperror.ErrConflict)))
	assert.True(t, DependencyFailure(context.DeadlineExceeded))
	assert.True(t, DependencyFailure(errDown))
	assert.True(t, DependencyFailure(errors.New("boom")))
}

func TestBreaker_PanickingTrialReopens(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	ctx := context.Background()
	for range 3 {
		_ = b.Execute(ctx, fail)
	}
	clock.Advance(time.Minute)

	assert.PanicsWithValue(t, "boom", func() {
		_ = b.Execute(ctx, func(context.Context) error { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Execute(ctx, succeed), ErrCircuitOpen)

	clock.Advance(time.Minute)
	called := false
	require.NoError(t, b.Execute(ctx, func(context.Context) error { called = true; return nil }))
	assert.True(t, called)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_PanicCountsAsFailure(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	ctx := context.Background()

	for range 3 {
		assert.Panics(t, func() {
			_ = b.Execute(ctx, func(context.Context) error { panic("boom") })
		})
	}
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_CancelledTrialRestartsRecoveryTimeout(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	ctx := context.Background()
	for range 3 {
		_ = b.Execute(ctx, fail)
	}
	clock.Advance(time.Minute)

	assert.ErrorIs(t, b.Execute(ctx, func(context.Context) error { return context.Canceled }), context.Canceled)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock.Advance(time.Minute)
	require.NoError(t, b.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, b.State())
}
