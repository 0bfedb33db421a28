package resilience

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/metrics"
)

// ErrCircuitOpen is wrapped by the error returned when a call is rejected.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerOptions configures a CircuitBreaker.
type BreakerOptions struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	// IsFailure decides whether an operation error counts against the
	// dependency. Defaults to DependencyFailure.
	IsFailure func(error) bool
	Now       func() time.Time
}

// DependencyFailure counts timeouts, network errors and server-side errors.
// Client-side outcomes such as a missing row or a conflict, and callers that
// went away, prove the dependency answered.
func DependencyFailure(err error) bool {
	if err == nil {
		return false
	}
	appErr := apperror.Convert(err, "")
	switch appErr.Code {
	case apperror.CodeCancelled:
		return false
	case apperror.CodeTimeout, apperror.CodeNetwork:
		return true
	}
	return appErr.StatusCode >= http.StatusInternalServerError
}

// BreakerStatus is a snapshot of a breaker.
type BreakerStatus struct {
	Name            string     `json:"name"`
	State           string     `json:"state"`
	FailureCount    int        `json:"failure_count"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
}

// CircuitBreaker stops calling a dependency after FailureThreshold consecutive
// failures and admits a single trial call once RecoveryTimeout has elapsed.
type CircuitBreaker struct {
	name string
	opts BreakerOptions
	log  zerolog.Logger

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// NewCircuitBreaker creates a closed breaker. Zero options default to 5
// failures and a one minute recovery timeout.
func NewCircuitBreaker(name string, opts BreakerOptions, log zerolog.Logger) *CircuitBreaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.RecoveryTimeout <= 0 {
		opts.RecoveryTimeout = time.Minute
	}
	if opts.IsFailure == nil {
		opts.IsFailure = DependencyFailure
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b := &CircuitBreaker{
		name: name,
		opts: opts,
		log:  log.With().Str("component", "circuit_breaker").Str("breaker", name).Logger(),
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return b
}

// Name returns the dependency name the breaker guards.
func (b *CircuitBreaker) Name() string { return b.name }

// Execute runs op unless the breaker is open. A panicking op counts as a
// failure and the panic is re-raised.
func (b *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			b.mu.Lock()
			b.failure()
			b.mu.Unlock()
			panic(r)
		}
	}()
	err := op(ctx)
	b.record(err)
	return err
}

func (b *CircuitBreaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.opts.Now().Sub(b.lastFailure) >= b.opts.RecoveryTimeout {
			b.setState(StateHalfOpen)
			b.log.Info().Msg("Attempting reset (half-open)")
			return nil
		}
	}
	// Open inside the timeout, or half-open with the trial call in flight.
	return b.rejection()
}

func (b *CircuitBreaker) rejection() error {
	ctx := map[string]any{
		"circuit_breaker_state": b.state.String(),
		"failure_count":         b.failures,
	}
	if !b.lastFailure.IsZero() {
		ctx["last_failure"] = b.lastFailure.UTC().Format(time.RFC3339)
	}
	return apperror.ExternalService(b.name,
		"Circuit breaker is open - service temporarily unavailable", nil, ctx).Wrap(ErrCircuitOpen)
}

func (b *CircuitBreaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		// The caller left; the trial proved nothing either way. Reopen and
		// restart the recovery timeout so only one trial runs per window.
		if b.state == StateHalfOpen {
			b.lastFailure = b.opts.Now()
			b.setState(StateOpen)
		}
		return
	}

	if !b.opts.IsFailure(err) {
		if b.state != StateClosed {
			b.log.Info().Msg("Reset successful (closed)")
		}
		b.failures = 0
		b.setState(StateClosed)
		return
	}
	b.failure()
}

// failure counts a failed call and opens the breaker when due. Caller holds mu.
func (b *CircuitBreaker) failure() {
	b.failures++
	b.lastFailure = b.opts.Now()
	if b.state == StateHalfOpen || b.failures >= b.opts.FailureThreshold {
		if b.state != StateOpen {
			b.log.Warn().Int("failures", b.failures).Msg("Circuit opened")
		}
		b.setState(StateOpen)
	}
}

// setState updates the state and its gauge. Caller holds mu.
func (b *CircuitBreaker) setState(s State) {
	b.state = s
	metrics.CircuitBreakerState.WithLabelValues(b.name).Set(float64(s))
}

// State returns the current state without side effects.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Status returns a snapshot for health reporting.
func (b *CircuitBreaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := BreakerStatus{Name: b.name, State: b.state.String(), FailureCount: b.failures}
	if !b.lastFailure.IsZero() {
		t := b.lastFailure
		st.LastFailureTime = &t
	}
	return st
}

// Registry owns the named breakers of the process.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	opts     BreakerOptions
	log      zerolog.Logger
}

// NewRegistry creates a Registry whose breakers share opts.
func NewRegistry(opts BreakerOptions, log zerolog.Logger) *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker), opts: opts, log: log}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, r.opts, r.log)
	r.breakers[name] = b
	return b
}

// Statuses lists every breaker, sorted by name, in the tracker's health shape.
func (r *Registry) Statuses() []apperror.DependencyStatus {
	r.mu.Lock()
	list := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })

	out := make([]apperror.DependencyStatus, 0, len(list))
	for _, b := range list {
		st := b.Status()
		ds := apperror.DependencyStatus{Service: st.Name, Status: st.State}
		if st.LastFailureTime != nil {
			ds.LastFailure = st.LastFailureTime.UTC().Format(time.RFC3339)
		}
		out = append(out, ds)
	}
	return out
}
