package booking

import (
	"context"
	"fmt"

	"builderhub/models"

	"go.uber.org/zap"
)

// StartCheckout opens a payment-collaborator checkout session for a priced
// booking. Requesting checkout twice for the same booking returns the
// existing session rather than opening a duplicate; a new session is only
// issued when the prior one expired or the payment failed.
func (s *DefaultLifecycleService) StartCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.BookingID == "" {
		return nil, wrapValidation("booking id is required")
	}
	if input.SuccessURL == "" || input.CancelURL == "" {
		return nil, wrapValidation("success and cancel URLs are required")
	}

	b, err := s.GetBooking(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}

	replace := false
	switch b.State {
	case models.BookingPaymentRequired:
		// First checkout for this booking.
	case models.BookingPaymentPending:
		existing, status, err := s.activeSession(ctx, b)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		if status == models.CheckoutPaid {
			// The webhook will (or did) confirm this booking; do not open
			// another session on top of a settled payment.
			return nil, wrapValidation("payment already completed for this booking")
		}
		replace = true
	case models.BookingPaymentFailed:
		// Failed payments are retryable: reopen PAYMENT_REQUIRED first so
		// the stale ref is dropped before the replacement is recorded.
		if _, err := s.Executor.Apply(ctx, b.ID, Event{Kind: EventPaymentRetry}); err != nil {
			return nil, err
		}
	default:
		return nil, wrapValidation(fmt.Sprintf("booking in state %s is not awaiting payment", b.State))
	}

	if b.AmountCents <= 0 {
		return nil, wrapValidation("free sessions do not require checkout")
	}

	sess, err := s.Gateway.CreateCheckoutSession(ctx, models.CheckoutParams{
		BookingID:   b.ID,
		AmountCents: b.AmountCents,
		Currency:    b.Currency,
		Description: fmt.Sprintf("Session %s with builder %s", b.SessionTypeID, b.BuilderID),
		SuccessURL:  input.SuccessURL,
		CancelURL:   input.CancelURL,
	})
	if err != nil {
		// No partial state: the booking stays where it was.
		return nil, fmt.Errorf("%v: %w", err, ErrCollaboratorUnavailable)
	}

	res, err := s.Executor.Apply(ctx, b.ID, Event{
		Kind:       EventCheckoutOpened,
		PaymentRef: sess.SessionRef,
		Replace:    replace,
	})
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeRejected {
		// A concurrent checkout won; surface its session instead of ours.
		if existing, _, aerr := s.activeSession(ctx, res.Booking); aerr == nil && existing != nil {
			return existing, nil
		}
		return nil, wrapValidation("another checkout request is already in flight")
	}

	return &CheckoutResult{
		CheckoutURL: sess.RedirectURL,
		PaymentRef:  sess.SessionRef,
		State:       res.Booking.State,
	}, nil
}

// activeSession returns the booking's existing checkout session when it is
// still usable, plus the raw collaborator status for the caller's branching.
func (s *DefaultLifecycleService) activeSession(ctx context.Context, b *models.Booking) (*CheckoutResult, models.CheckoutSessionStatus, error) {
	if b.PaymentRef == "" {
		return nil, "", nil
	}

	sess, err := s.Gateway.RetrieveSession(ctx, b.PaymentRef)
	if err != nil {
		return nil, "", fmt.Errorf("%v: %w", err, ErrCollaboratorUnavailable)
	}

	if sess.Status == models.CheckoutOpen {
		s.Logger.Debug("reusing open checkout session",
			zap.String("bookingId", b.ID),
			zap.String("sessionRef", sess.SessionRef))
		return &CheckoutResult{
			CheckoutURL: sess.RedirectURL,
			PaymentRef:  sess.SessionRef,
			State:       b.State,
		}, sess.Status, nil
	}
	return nil, sess.Status, nil
}
