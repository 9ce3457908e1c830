package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"builderhub/models"

	"go.uber.org/zap"
)

const (
	webhookDedupePrefix = "payment:webhook:"
	webhookDedupeTTL    = 72 * time.Hour

	// A webhook can outrun the create/checkout transaction it refers to;
	// retry the lookup briefly before treating it as a genuine miss.
	notFoundRetries = 3
	notFoundBackoff = 200 * time.Millisecond
)

// HandlePaymentWebhook is the push entry point of reconciliation. The
// signature must verify before anything in the payload is trusted. Once it
// does, the caller acknowledges with 2xx no matter whether the transition
// applied or was rejected as stale, so the collaborator stops redelivering.
func (s *DefaultLifecycleService) HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.Gateway.VerifyWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrValidation)
	}
	if ev.Kind == models.WebhookIgnored {
		return nil
	}

	seen, err := s.eventSeen(ctx, ev.EventID)
	if err != nil {
		// Dedupe is best effort; the state machine tolerates duplicates.
		s.Logger.Warn("webhook dedupe unavailable, relying on state machine idempotency",
			zap.String("eventId", ev.EventID), zap.Error(err))
	} else if seen {
		s.Logger.Debug("duplicate webhook delivery skipped", zap.String("eventId", ev.EventID))
		return nil
	}

	event := reconcileEvent(ev.Kind, ev.SessionRef)
	bookingID, err := s.resolveBookingID(ctx, ev.BookingID, ev.SessionRef)
	if err != nil {
		return err
	}

	if err := s.applyReconciliation(ctx, bookingID, event); err != nil {
		// The seen mark was never written, so the provider's retry of this
		// event id will get a full second chance.
		return err
	}

	s.markEventSeen(ctx, ev.EventID)
	return nil
}

// PollCheckoutStatus is the pull entry point: a client polling a known
// session ref. The answer is always the persisted booking state; if the
// collaborator reports a settled result the transition is applied first.
func (s *DefaultLifecycleService) PollCheckoutStatus(ctx context.Context, sessionRef string) (*CheckoutStatusResult, error) {
	if sessionRef == "" {
		return nil, wrapValidation("session id is required")
	}

	sess, err := s.Gateway.RetrieveSession(ctx, sessionRef)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrCollaboratorUnavailable)
	}

	bookingID, err := s.resolveBookingID(ctx, sess.BookingID, sessionRef)
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case models.CheckoutPaid:
		if err := s.applyReconciliation(ctx, bookingID, Event{Kind: EventPaymentSucceeded, PaymentRef: sessionRef}); err != nil {
			return nil, err
		}
	case models.CheckoutExpired, models.CheckoutFailed:
		if err := s.applyReconciliation(ctx, bookingID, reconcileEvent(models.WebhookCheckoutExpired, sessionRef)); err != nil {
			return nil, err
		}
	}

	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &CheckoutStatusResult{
		BookingID:     b.ID,
		PaymentStatus: sess.Status,
		BookingState:  b.State,
	}, nil
}

// SweepStalePending polls the collaborator for PAYMENT_PENDING bookings
// whose checkout has been quiet for olderThan, feeding settled results
// through the normal reconciliation path. Returns how many transitions
// were applied.
func (s *DefaultLifecycleService) SweepStalePending(ctx context.Context, olderThan time.Duration, limit int64) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.Bookings.ListPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, b := range stale {
		if b.PaymentRef == "" {
			continue
		}
		sess, err := s.Gateway.RetrieveSession(ctx, b.PaymentRef)
		if err != nil {
			s.Logger.Warn("pending sweep could not reach payment collaborator",
				zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}

		var ev Event
		switch sess.Status {
		case models.CheckoutPaid:
			ev = Event{Kind: EventPaymentSucceeded, PaymentRef: b.PaymentRef}
		case models.CheckoutExpired, models.CheckoutFailed:
			ev = reconcileEvent(models.WebhookCheckoutExpired, b.PaymentRef)
		default:
			continue
		}

		res, err := s.Executor.Apply(ctx, b.ID, ev)
		if err != nil {
			s.Logger.Error("pending sweep transition failed",
				zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}
		if res.Outcome == OutcomeApply {
			applied++
		}
	}
	return applied, nil
}

// applyReconciliation drives one reconciliation event through the
// executor, retrying briefly when the booking is not visible yet.
func (s *DefaultLifecycleService) applyReconciliation(ctx context.Context, bookingID string, ev Event) error {
	var lastErr error
	for attempt := 0; attempt < notFoundRetries; attempt++ {
		res, err := s.Executor.Apply(ctx, bookingID, ev)
		if err == nil {
			if res.Outcome == OutcomeRejected {
				s.Logger.Warn("reconciliation event was stale",
					zap.String("bookingId", bookingID),
					zap.String("event", string(ev.Kind)),
					zap.String("reason", res.Reason))
			}
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * notFoundBackoff):
		}
	}
	return lastErr
}

func (s *DefaultLifecycleService) resolveBookingID(ctx context.Context, bookingID, sessionRef string) (string, error) {
	if bookingID != "" {
		return bookingID, nil
	}
	if sessionRef != "" {
		b, err := s.Bookings.GetByPaymentRef(ctx, sessionRef)
		if err != nil {
			return "", err
		}
		if b != nil {
			return b.ID, nil
		}
	}
	return "", fmt.Errorf("no booking resolvable from payment metadata: %w", ErrNotFound)
}

// eventSeen reports whether a webhook event id was already processed.
func (s *DefaultLifecycleService) eventSeen(ctx context.Context, eventID string) (bool, error) {
	if s.EventCache == nil || eventID == "" {
		return false, nil
	}
	n, err := s.EventCache.Exists(ctx, webhookDedupePrefix+eventID).Result()
	return n > 0, err
}

// markEventSeen records a processed webhook event id. Only called after the
// transition committed: marking up front would let a transient apply failure
// eat the provider's retry. Two deliveries racing past eventSeen both apply,
// which the state machine absorbs.
func (s *DefaultLifecycleService) markEventSeen(ctx context.Context, eventID string) {
	if s.EventCache == nil || eventID == "" {
		return
	}
	if err := s.EventCache.SetNX(ctx, webhookDedupePrefix+eventID, 1, webhookDedupeTTL).Err(); err != nil {
		s.Logger.Warn("failed to record processed webhook event",
			zap.String("eventId", eventID), zap.Error(err))
	}
}

func reconcileEvent(kind models.PaymentWebhookKind, sessionRef string) Event {
	switch kind {
	case models.WebhookCheckoutCompleted:
		return Event{Kind: EventPaymentSucceeded, PaymentRef: sessionRef}
	case models.WebhookCheckoutExpired:
		return Event{Kind: EventPaymentFailed, PaymentRef: sessionRef, Reason: "checkout session expired"}
	default:
		return Event{Kind: EventPaymentFailed, PaymentRef: sessionRef, Reason: "payment failed"}
	}
}
