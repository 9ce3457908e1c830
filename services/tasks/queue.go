package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"builderhub/config"
	"builderhub/services/booking"

	"github.com/hibiken/asynq"
)

const (
	// TypeConflictInspect carries a booking event whose optimistic retries
	// were exhausted, parked for operator review.
	TypeConflictInspect = "booking:conflict_inspect"
	// TypeReconcilePending triggers a sweep of stale PAYMENT_PENDING
	// bookings against the payment collaborator.
	TypeReconcilePending = "booking:reconcile_pending"
)

// ConflictPayload is the dead-letter record for a contested transition.
type ConflictPayload struct {
	BookingID  string    `json:"booking_id"`
	EventKind  string    `json:"event_kind"`
	PaymentRef string    `json:"payment_ref,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	QueuedAt   time.Time `json:"queued_at"`
}

// Queue wraps the asynq client used to hand work to the background worker.
// It implements booking.DeadLetterQueue.
type Queue struct {
	client *asynq.Client
}

// NewQueue creates the task queue client against the configured Redis.
func NewQueue() *Queue {
	return &Queue{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisTaskQueueDB,
		}),
	}
}

// EnqueueConflict parks a contested booking event for manual inspection.
func (q *Queue) EnqueueConflict(ctx context.Context, bookingID string, ev booking.Event, detail string) error {
	payload, err := json.Marshal(ConflictPayload{
		BookingID:  bookingID,
		EventKind:  string(ev.Kind),
		PaymentRef: ev.PaymentRef,
		Reason:     ev.Reason,
		Detail:     detail,
		QueuedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal conflict payload: %w", err)
	}

	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(TypeConflictInspect, payload),
		asynq.MaxRetry(5), asynq.Retention(7*24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to enqueue conflict inspection task: %w", err)
	}
	return nil
}

// EnqueueReconcileSweep schedules one stale-pending reconciliation pass.
func (q *Queue) EnqueueReconcileSweep(ctx context.Context) error {
	_, err := q.client.EnqueueContext(ctx, asynq.NewTask(TypeReconcilePending, nil),
		asynq.MaxRetry(1))
	if err != nil {
		return fmt.Errorf("failed to enqueue reconcile sweep task: %w", err)
	}
	return nil
}
