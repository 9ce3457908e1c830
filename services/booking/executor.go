package booking

import (
	"context"
	"fmt"
	"time"

	bookingRepo "builderhub/database/repository/booking"
	"builderhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// DeadLetterQueue receives transition events whose optimistic retries were
// exhausted so an operator can inspect them.
type DeadLetterQueue interface {
	EnqueueConflict(ctx context.Context, bookingID string, ev Event, detail string) error
}

// ApplyResult reports what the executor did with an event.
type ApplyResult struct {
	Booking *models.Booking
	Outcome Outcome
	// Reason is set for rejected (stale) events.
	Reason string
}

// TransitionExecutor is the only component that mutates booking state. It
// loads the record, asks the state machine core for a decision, and persists
// the transition with a state-compare-and-set write. Concurrent transitions
// on the same booking are resolved by reloading and re-deciding, a bounded
// number of times.
type TransitionExecutor struct {
	Repo       bookingRepo.BookingRepository
	DeadLetter DeadLetterQueue
	Logger     *zap.Logger
	// MaxRetries bounds reload-and-retry on write conflicts; zero means
	// the default of 3.
	MaxRetries int
}

func (x *TransitionExecutor) maxRetries() int {
	if x.MaxRetries > 0 {
		return x.MaxRetries
	}
	return 3
}

// Apply runs one event (plus any follow-up the machine chains onto it)
// against the booking. Stale events come back as a rejected ApplyResult,
// not an error: the caller acknowledges them so the sender stops retrying.
func (x *TransitionExecutor) Apply(ctx context.Context, bookingID string, ev Event) (*ApplyResult, error) {
	result, err := x.applyOne(ctx, bookingID, ev)
	if err != nil {
		return nil, err
	}

	// Chained transitions (e.g. PAYMENT_SUCCEEDED -> CONFIRMED) run after
	// the previous write committed, each idempotent on its own.
	for next := result.followUp; next != nil; {
		followed, err := x.applyOne(ctx, bookingID, *next)
		if err != nil {
			return nil, err
		}
		result.Booking = followed.Booking
		next = followed.followUp
	}
	return &result.ApplyResult, nil
}

type applyOutcome struct {
	ApplyResult
	followUp *Event
}

func (x *TransitionExecutor) applyOne(ctx context.Context, bookingID string, ev Event) (*applyOutcome, error) {
	var lastConflict string

	for attempt := 0; attempt < x.maxRetries(); attempt++ {
		b, err := x.Repo.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
		}

		d := Decide(*b, ev)
		switch d.Outcome {
		case OutcomeAlreadyApplied:
			// A no-op can still carry a follow-up, e.g. a redelivered success
			// whose original auto-confirm never committed.
			return &applyOutcome{
				ApplyResult: ApplyResult{Booking: b, Outcome: OutcomeAlreadyApplied},
				followUp:    d.FollowUp,
			}, nil
		case OutcomeRejected:
			x.Logger.Warn("stale booking event rejected",
				zap.String("bookingId", bookingID),
				zap.String("event", string(ev.Kind)),
				zap.String("state", string(b.State)),
				zap.String("reason", d.Reason))
			return &applyOutcome{ApplyResult: ApplyResult{Booking: b, Outcome: OutcomeRejected, Reason: d.Reason}}, nil
		}

		set := bson.M{
			"state":              d.Next,
			"last_transition_at": time.Now(),
			"last_error":         ev.Reason,
		}
		if d.SetPaymentRef != "" {
			set["payment_ref"] = d.SetPaymentRef
		} else if d.ClearPaymentRef {
			set["payment_ref"] = ""
		}

		matched, err := x.Repo.UpdateState(ctx, bookingID, b.State, set)
		if err != nil {
			return nil, err
		}
		if !matched {
			lastConflict = fmt.Sprintf("state moved off %s during %s", b.State, ev.Kind)
			x.Logger.Debug("booking transition conflict, retrying",
				zap.String("bookingId", bookingID),
				zap.String("event", string(ev.Kind)),
				zap.Int("attempt", attempt+1))
			continue
		}

		updated := *b
		updated.State = d.Next
		if d.SetPaymentRef != "" {
			updated.PaymentRef = d.SetPaymentRef
		} else if d.ClearPaymentRef {
			updated.PaymentRef = ""
		}
		updated.LastError = ev.Reason

		x.Logger.Info("booking transition applied",
			zap.String("bookingId", bookingID),
			zap.String("event", string(ev.Kind)),
			zap.String("from", string(b.State)),
			zap.String("to", string(d.Next)))

		return &applyOutcome{
			ApplyResult: ApplyResult{Booking: &updated, Outcome: OutcomeApply},
			followUp:    d.FollowUp,
		}, nil
	}

	// Retries exhausted: escalate instead of dropping the event.
	if x.DeadLetter != nil {
		if qerr := x.DeadLetter.EnqueueConflict(ctx, bookingID, ev, lastConflict); qerr != nil {
			x.Logger.Error("failed to queue contested booking event for inspection",
				zap.String("bookingId", bookingID),
				zap.String("event", string(ev.Kind)),
				zap.Error(qerr))
		}
	}
	return nil, fmt.Errorf("booking %s event %s: %w", bookingID, ev.Kind, ErrConflictExceeded)
}
