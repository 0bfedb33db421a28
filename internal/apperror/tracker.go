package apperror

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/metrics"
)

const (
	// DefaultHistorySize bounds the ring buffer of recently handled errors.
	DefaultHistorySize = 1000

	alertWindow      = 5 * time.Minute
	statsWindow      = time.Hour
	alertTotal       = 50
	alertAuth        = 20
	alertServerError = 10
	topErrorsLimit   = 10
)

// AlertKind names an error pattern that crossed its threshold.
type AlertKind string

const (
	AlertHighErrorRate  AlertKind = "high_error_rate"
	AlertHighAuthErrors AlertKind = "high_auth_error_rate"
	AlertHighServer     AlertKind = "high_server_error_rate"
)

// Alert is raised when the recent error history crosses a threshold.
type Alert struct {
	Kind  AlertKind `json:"kind"`
	Count int       `json:"count"`
}

// CodeCount is one entry of the top-errors ranking.
type CodeCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// Stats summarizes handled errors.
type Stats struct {
	ErrorCounts      map[string]int `json:"error_counts"`
	RecentErrorCount int            `json:"recent_error_count"`
	TopErrors        []CodeCount    `json:"top_errors"`
}

type historyEntry struct {
	code   Code
	status int
	at     time.Time
}

// Tracker normalizes errors, logs them and keeps bounded in-process history.
type Tracker struct {
	mu      sync.Mutex
	counts  map[string]int
	history []historyEntry
	next    int
	full    bool

	log     zerolog.Logger
	now     func() time.Time
	onAlert func(Alert)
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithHistorySize overrides DefaultHistorySize.
func WithHistorySize(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.history = make([]historyEntry, n)
		}
	}
}

// WithAlertHook is invoked for every alert raised, in addition to logging.
func WithAlertHook(fn func(Alert)) TrackerOption {
	return func(t *Tracker) { t.onAlert = fn }
}

// NewTracker creates an empty Tracker.
func NewTracker(log zerolog.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		counts:  make(map[string]int),
		history: make([]historyEntry, DefaultHistorySize),
		log:     log.With().Str("component", "error_tracker").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle converts err, logs it, records it and returns the normalized error.
func (t *Tracker) Handle(err error, requestID string) *Error {
	if err == nil {
		return nil
	}
	appErr := Convert(err, requestID)
	t.logError(appErr)
	metrics.ErrorsTotal.WithLabelValues(string(appErr.Code), strconv.Itoa(appErr.StatusCode)).Inc()
	for _, a := range t.track(appErr) {
		metrics.ErrorAlertsTotal.WithLabelValues(string(a.Kind)).Inc()
		t.log.Warn().Str("alert", string(a.Kind)).Int("count", a.Count).Msg("Error pattern threshold crossed")
		if t.onAlert != nil {
			t.onAlert(a)
		}
	}
	return appErr
}

func (t *Tracker) logError(e *Error) {
	ev := t.log.Warn()
	if e.StatusCode >= http.StatusInternalServerError {
		ev = t.log.Error()
		if e.cause != nil {
			ev = ev.Err(e.cause)
		}
	}
	ev.Str("code", string(e.Code)).
		Int("status", e.StatusCode).
		Str("request_id", e.RequestID).
		Interface("context", e.Context).
		Msg(e.Message)
}

func (t *Tracker) track(e *Error) []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.counts[fmt.Sprintf("%s_%d", e.Code, e.StatusCode)]++

	t.history[t.next] = historyEntry{code: e.Code, status: e.StatusCode, at: now}
	t.next = (t.next + 1) % len(t.history)
	if t.next == 0 {
		t.full = true
	}

	return t.checkPatterns(now)
}

// entries returns the populated part of the ring buffer. Caller holds mu.
func (t *Tracker) entries() []historyEntry {
	if t.full {
		return t.history
	}
	return t.history[:t.next]
}

// checkPatterns inspects the last alertWindow of history. Caller holds mu.
func (t *Tracker) checkPatterns(now time.Time) []Alert {
	var total, auth, server int
	for _, h := range t.entries() {
		if now.Sub(h.at) >= alertWindow {
			continue
		}
		total++
		if h.status == http.StatusUnauthorized || h.status == http.StatusForbidden {
			auth++
		}
		if h.status >= http.StatusInternalServerError {
			server++
		}
	}

	var alerts []Alert
	if total > alertTotal {
		alerts = append(alerts, Alert{Kind: AlertHighErrorRate, Count: total})
	}
	if auth > alertAuth {
		alerts = append(alerts, Alert{Kind: AlertHighAuthErrors, Count: auth})
	}
	if server > alertServerError {
		alerts = append(alerts, Alert{Kind: AlertHighServer, Count: server})
	}
	return alerts
}

// Stats returns per-code counts, the number of errors in the last hour and the
// ten most frequent codes.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	recent := 0
	for _, h := range t.entries() {
		if now.Sub(h.at) < statsWindow {
			recent++
		}
	}

	counts := make(map[string]int, len(t.counts))
	top := make([]CodeCount, 0, len(t.counts))
	for code, n := range t.counts {
		counts[code] = n
		top = append(top, CodeCount{Code: code, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Code < top[j].Code
	})
	if len(top) > topErrorsLimit {
		top = top[:topErrorsLimit]
	}

	return Stats{ErrorCounts: counts, RecentErrorCount: recent, TopErrors: top}
}

// Clear drops all counts and history.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = make(map[string]int)
	t.history = make([]historyEntry, len(t.history))
	t.next = 0
	t.full = false
}
