package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/metrics"
	"github.com/hobbyist/hobbyist-api/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// NotificationStore persists notifications.
type NotificationStore interface {
	InsertBatch(ctx context.Context, batch []model.Notification) error
	Insert(ctx context.Context, n *model.Notification) error
}

// NotificationWorker drains the booking events queue into the notifications
// table in batches.
type NotificationWorker struct {
	store NotificationStore
	rdb   *redis.Client
	log   zerolog.Logger
	// backoff pauses after a redis error or a requeue.
	backoff func(ctx context.Context, d time.Duration)
}

func NewNotificationWorker(store NotificationStore, rdb *redis.Client, log zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		store:   store,
		rdb:     rdb,
		log:     log.With().Str("component", "notification_worker").Logger(),
		backoff: sleep,
	}
}

// Start runs until ctx is cancelled, then flushes what is buffered.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("NotificationWorker started")

	buffer := make([]model.BookingEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlushTime = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// BLPop blocks for PollTimeout and returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.BookingEventsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			w.backoff(ctx, 3*time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var event model.BookingEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed events can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed booking event")
			continue
		}
		buffer = append(buffer, event)
	}
}

// Notification turns a booking event into the notification stored for the
// booking's user.
func Notification(event model.BookingEvent) (model.Notification, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return model.Notification{}, err
	}
	return model.Notification{
		UserID:    event.UserID,
		Kind:      event.Kind,
		Payload:   payload,
		CreatedAt: event.OccurredAt,
	}, nil
}

// flushSafe tries a bulk insert, then row by row, then requeues what failed.
func (w *NotificationWorker) flushSafe(ctx context.Context, events []model.BookingEvent) {
	batch := make([]model.Notification, 0, len(events))
	for _, e := range events {
		n, err := Notification(e)
		if err != nil {
			w.log.Error().Err(err).Str("booking_id", e.BookingID.String()).Msg("Dropping unencodable booking event")
			continue
		}
		batch = append(batch, n)
	}
	if len(batch) == 0 {
		return
	}

	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		metrics.NotificationsPersistedTotal.Add(float64(len(batch)))
		return
	}

	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
	w.fallbackInsert(ctx, events)
}

func (w *NotificationWorker) fallbackInsert(ctx context.Context, events []model.BookingEvent) {
	var requeue []model.BookingEvent
	for _, e := range events {
		n, err := Notification(e)
		if err != nil {
			continue
		}
		if err := w.store.Insert(ctx, &n); err != nil {
			w.log.Error().Err(err).Str("booking_id", e.BookingID.String()).Msg("Insert failed, requeueing")
			requeue = append(requeue, e)
			continue
		}
		metrics.NotificationsPersistedTotal.Inc()
	}

	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *NotificationWorker) requeue(ctx context.Context, events []model.BookingEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range events {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.BookingEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(events)).Msg("CRITICAL: Failed to requeue booking events. Notifications lost.")
		return
	}
	w.log.Info().Int("count", len(events)).Msg("Requeued failed booking events")
	// Avoid thrashing while the database is down.
	w.backoff(ctx, 2*time.Second)
}

func (w *NotificationWorker) shutdown(buffer []model.BookingEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
