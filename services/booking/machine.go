package booking

import (
	"fmt"

	"builderhub/models"
)

// EventKind tags the closed set of lifecycle events.
type EventKind string

const (
	EventCreated          EventKind = "booking.created"
	EventCheckoutOpened   EventKind = "booking.checkout_opened"
	EventPaymentSucceeded EventKind = "booking.payment_succeeded"
	EventPaymentFailed    EventKind = "booking.payment_failed"
	EventPaymentRetry     EventKind = "booking.payment_retry"
	EventConfirm          EventKind = "booking.confirm"
	EventCancel           EventKind = "booking.cancel"
)

// Event is a validated lifecycle event. Webhook and poll payloads are
// translated into Events at the boundary; the machine never sees raw
// collaborator data.
type Event struct {
	Kind EventKind

	// PaymentRef carries the checkout session reference for checkout and
	// reconciliation events. It doubles as the idempotency handle: an event
	// whose ref already produced its target state is a no-op.
	PaymentRef string

	// Free marks a zero-price booking on EventCreated.
	Free bool

	// Replace allows EventCheckoutOpened to swap the payment ref of a
	// PAYMENT_PENDING booking whose prior session expired or was abandoned.
	Replace bool

	// Reason is recorded on the booking for cancel and failure events.
	Reason string
}

// Outcome classifies what a decision asks the executor to do.
type Outcome int

const (
	// OutcomeApply means the transition is valid and must be persisted.
	OutcomeApply Outcome = iota
	// OutcomeAlreadyApplied means the event was seen before; the record is
	// already in (or past) the target state. Not an error.
	OutcomeAlreadyApplied
	// OutcomeRejected means the event is not an outgoing edge of the
	// current state. Treated as a stale duplicate, never surfaced as a
	// failure to the sender.
	OutcomeRejected
)

// Decision is the pure result of applying an event to a booking snapshot.
type Decision struct {
	Outcome Outcome
	Next    models.BookingState

	// SetPaymentRef, when non-empty, is persisted alongside the transition.
	// ClearPaymentRef drops the stale ref when a failed payment is retried.
	SetPaymentRef   string
	ClearPaymentRef bool

	// FollowUp, when non-nil, is applied immediately after this transition
	// commits (e.g. PAYMENT_SUCCEEDED auto-advances to CONFIRMED).
	FollowUp *Event

	// Reason explains a rejection for the stale-event log.
	Reason string
}

func applied(next models.BookingState) Decision {
	return Decision{Outcome: OutcomeApply, Next: next}
}

func alreadyApplied(b models.Booking) Decision {
	return Decision{Outcome: OutcomeAlreadyApplied, Next: b.State}
}

func rejected(b models.Booking, ev Event, why string) Decision {
	return Decision{
		Outcome: OutcomeRejected,
		Next:    b.State,
		Reason:  fmt.Sprintf("%s not applicable in state %s: %s", ev.Kind, b.State, why),
	}
}

// Decide is the state machine core: a pure function from a booking snapshot
// and an event to a transition decision. It performs no I/O and never
// mutates the snapshot. Invalid edges come back as OutcomeRejected so the
// executor can acknowledge out-of-order or duplicated deliveries without
// touching the record.
func Decide(b models.Booking, ev Event) Decision {
	switch ev.Kind {
	case EventCreated:
		return decideCreated(b, ev)
	case EventCheckoutOpened:
		return decideCheckoutOpened(b, ev)
	case EventPaymentSucceeded:
		return decidePaymentSucceeded(b, ev)
	case EventPaymentFailed:
		return decidePaymentFailed(b, ev)
	case EventPaymentRetry:
		return decidePaymentRetry(b)
	case EventConfirm:
		return decideConfirm(b)
	case EventCancel:
		return decideCancel(b)
	default:
		return rejected(b, ev, "unknown event kind")
	}
}

func decideCreated(b models.Booking, ev Event) Decision {
	if b.State != models.BookingCreated {
		// Re-delivered creation callback for a booking that already moved on.
		return alreadyApplied(b)
	}
	if ev.Free {
		return applied(models.BookingConfirmed)
	}
	return applied(models.BookingPaymentRequired)
}

func decideCheckoutOpened(b models.Booking, ev Event) Decision {
	switch b.State {
	case models.BookingPaymentRequired:
		d := applied(models.BookingPaymentPending)
		d.SetPaymentRef = ev.PaymentRef
		return d
	case models.BookingPaymentPending:
		if b.PaymentRef == ev.PaymentRef {
			return alreadyApplied(b)
		}
		if ev.Replace {
			// Prior session expired or was abandoned; the initiator verified
			// that before asking for a swap.
			d := applied(models.BookingPaymentPending)
			d.SetPaymentRef = ev.PaymentRef
			return d
		}
		return rejected(b, ev, "another checkout session is already active")
	default:
		return rejected(b, ev, "booking is not awaiting checkout")
	}
}

func decidePaymentSucceeded(b models.Booking, ev Event) Decision {
	switch b.State {
	case models.BookingPaymentPending:
		if ev.PaymentRef != "" && b.PaymentRef != "" && ev.PaymentRef != b.PaymentRef {
			return rejected(b, ev, "payment ref does not match the active checkout session")
		}
		d := applied(models.BookingPaymentSucceeded)
		d.FollowUp = &Event{Kind: EventConfirm}
		return d
	case models.BookingPaymentSucceeded:
		if ev.PaymentRef == "" || ev.PaymentRef == b.PaymentRef {
			// The auto-confirm write after the original success may have been
			// lost (crash, exhausted retries). A redelivery still has to
			// finish the job, so the no-op carries the confirm follow-up.
			d := alreadyApplied(b)
			d.FollowUp = &Event{Kind: EventConfirm}
			return d
		}
		return rejected(b, ev, "success reported for a superseded checkout session")
	case models.BookingConfirmed:
		if ev.PaymentRef == "" || ev.PaymentRef == b.PaymentRef {
			return alreadyApplied(b)
		}
		return rejected(b, ev, "success reported for a superseded checkout session")
	default:
		// First terminal wins: success arriving after failure or cancel is stale.
		return rejected(b, ev, "booking already left the payment-pending state")
	}
}

func decidePaymentFailed(b models.Booking, ev Event) Decision {
	switch b.State {
	case models.BookingPaymentPending:
		if ev.PaymentRef != "" && b.PaymentRef != "" && ev.PaymentRef != b.PaymentRef {
			return rejected(b, ev, "failure reported for a superseded checkout session")
		}
		return applied(models.BookingPaymentFailed)
	case models.BookingPaymentFailed:
		if ev.PaymentRef == "" || ev.PaymentRef == b.PaymentRef {
			return alreadyApplied(b)
		}
		return rejected(b, ev, "failure reported for a superseded checkout session")
	default:
		return rejected(b, ev, "booking already left the payment-pending state")
	}
}

// decidePaymentRetry reopens PAYMENT_REQUIRED after a failed or expired
// payment so a fresh checkout session can be issued.
func decidePaymentRetry(b models.Booking) Decision {
	switch b.State {
	case models.BookingPaymentFailed:
		d := applied(models.BookingPaymentRequired)
		d.ClearPaymentRef = true
		return d
	case models.BookingPaymentRequired:
		return alreadyApplied(b)
	default:
		return rejected(b, Event{Kind: EventPaymentRetry}, "only a failed payment can be retried")
	}
}

func decideConfirm(b models.Booking) Decision {
	switch b.State {
	case models.BookingPaymentSucceeded:
		return applied(models.BookingConfirmed)
	case models.BookingConfirmed:
		return alreadyApplied(b)
	default:
		return rejected(b, Event{Kind: EventConfirm}, "payment has not succeeded")
	}
}

func decideCancel(b models.Booking) Decision {
	if b.State == models.BookingCancelled {
		return alreadyApplied(b)
	}
	if b.State.IsTerminal() {
		return rejected(b, Event{Kind: EventCancel}, "booking is already in a terminal state")
	}
	return applied(models.BookingCancelled)
}
