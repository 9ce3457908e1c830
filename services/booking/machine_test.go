package booking_test

import (
	"testing"

	"builderhub/models"
	"builderhub/services/booking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(state models.BookingState, paymentRef string) models.Booking {
	return models.Booking{
		ID:         "bk-1",
		BuilderID:  testBuilder,
		State:      state,
		PaymentRef: paymentRef,
	}
}

func TestDecideCreated(t *testing.T) {
	d := booking.Decide(snapshot(models.BookingCreated, ""), booking.Event{Kind: booking.EventCreated, Free: true})
	assert.Equal(t, booking.OutcomeApply, d.Outcome)
	assert.Equal(t, models.BookingConfirmed, d.Next)

	d = booking.Decide(snapshot(models.BookingCreated, ""), booking.Event{Kind: booking.EventCreated})
	assert.Equal(t, booking.OutcomeApply, d.Outcome)
	assert.Equal(t, models.BookingPaymentRequired, d.Next)

	// Re-delivered creation callback after the booking moved on.
	d = booking.Decide(snapshot(models.BookingPaymentPending, "cs_1"), booking.Event{Kind: booking.EventCreated})
	assert.Equal(t, booking.OutcomeAlreadyApplied, d.Outcome)
	assert.Equal(t, models.BookingPaymentPending, d.Next)
}

func TestDecideCheckoutOpened(t *testing.T) {
	d := booking.Decide(snapshot(models.BookingPaymentRequired, ""), booking.Event{Kind: booking.EventCheckoutOpened, PaymentRef: "cs_1"})
	require.Equal(t, booking.OutcomeApply, d.Outcome)
	assert.Equal(t, models.BookingPaymentPending, d.Next)
	assert.Equal(t, "cs_1", d.SetPaymentRef)

	// Same session re-announced: no-op.
	d = booking.Decide(snapshot(models.BookingPaymentPending, "cs_1"), booking.Event{Kind: booking.EventCheckoutOpened, PaymentRef: "cs_1"})
	assert.Equal(t, booking.OutcomeAlreadyApplied, d.Outcome)

	// A different session without the replace flag loses to the active one.
	d = booking.Decide(snapshot(models.BookingPaymentPending, "cs_1"), booking.Event{Kind: booking.EventCheckoutOpened, PaymentRef: "cs_2"})
	assert.Equal(t, booking.OutcomeRejected, d.Outcome)
	assert.Equal(t, models.BookingPaymentPending, d.Next)

	// Replacement after the prior session expired.
	d = booking.Decide(snapshot(models.BookingPaymentPending, "cs_1"), booking.Event{Kind: booking.EventCheckoutOpened, PaymentRef: "cs_2", Replace: true})
	require.Equal(t, booking.OutcomeApply, d.Outcome)
	assert.Equal(t, models.BookingPaymentPending, d.Next)
	assert.Equal(t, "cs_2", d.SetPaymentRef)
}

func TestDecidePaymentSucceeded(t *testing.T) {
	d := booking.Decide(snapshot(models.BookingPaymentPending, "cs_1"), booking.Event{Kind: booking.EventPaymentSucceeded, PaymentRef: "cs_1"})
	require.Equal(t, booking.OutcomeApply, d.Outcome)
	assert.Equal(t, models.BookingPaymentSucceeded, d.Next)
	require.NotNil(t, d.FollowUp)
	assert.Equal(t, booking.EventConfirm, d.FollowUp.Kind)

	// Duplicate delivery after confirmation is acknowledged, not re-applied.
	d = booking.Decide(snapshot(models.BookingConfirmed, "cs_1"), booking.Event{Kind: booking.EventPaymentSucceeded, PaymentRef: "cs_1"})
	assert.Equal(t, booking.OutcomeAlreadyApplied, d.Outcome)
	assert.Nil(t, d.FollowUp)

	// A redelivery that finds the record still on PAYMENT_SUCCEEDED means the
	// auto-confirm was lost; the no-op must re-chain it.
	d = booking.Decide(snapshot(models.BookingPaymentSucceeded, "cs_1"), booking.Event{Kind: booking.EventPaymentSucceeded, PaymentRef: "cs_1"})
	assert.Equal(t, booking.OutcomeAlreadyApplied, d.Outcome)
	require.NotNil(t, d.FollowUp)
	assert.Equal(t, booking.EventConfirm, d.FollowUp.Kind)

	// Success for a session that was replaced is stale.
	d = booking.Decide(snapshot(models.BookingPaymentPending, "cs_2"), booking.Event{Kind: booking.EventPaymentSucceeded, PaymentRef: "cs_1"})
	assert.Equal(t, booking.OutcomeRejected, d.Outcome)

	// First terminal wins: success after cancel never flips the record back.
	d = booking.Decide(snapshot(models.BookingCancelled, "cs_1"), booking.Event{Kind: booking.EventPaymentSucceeded, PaymentRef: "cs_1"})
	assert.Equal(t, booking.OutcomeRejected, d.Outcome)
	assert.Equal(t, models.BookingCancelled, d.Next)
}

func TestDecidePaymentFailed(t *testing.T) {
	d := booking.Decide(snapshot(models.BookingPaymentPending, "cs_1"), booking.Event{Kind: booking.EventPaymentFailed, PaymentRef: "cs_1"})
	require.Equal(t, booking.OutcomeApply, d.Outcome)
	assert.Equal(t, models.BookingPaymentFailed, d.Next)

	d = booking.Decide(snapshot(models.BookingPaymentFailed, "cs_1"), booking.Event{Kind: booking.EventPaymentFailed, PaymentRef: "cs_1"})
	assert.Equal(t, booking.OutcomeAlreadyApplied, d.Outcome)

	// Failure arriving after the payment already confirmed is stale.
	d = booking.Decide(snapshot(models.BookingConfirmed, "cs_1"), booking.Event{Kind: booking.EventPaymentFailed, PaymentRef: "cs_1"})
	assert.Equal(t, booking.OutcomeRejected, d.Outcome)
	assert.Equal(t, models.BookingConfirmed, d.Next)
}

func TestDecidePaymentRetry(t *testing.T) {
	d := booking.Decide(snapshot(models.BookingPaymentFailed, "cs_1"), booking.Event{Kind: booking.EventPaymentRetry})
	require.Equal(t, booking.OutcomeApply, d.Outcome)
	assert.Equal(t, models.BookingPaymentRequired, d.Next)
	assert.True(t, d.ClearPaymentRef)

	d = booking.Decide(snapshot(models.BookingPaymentRequired, ""), booking.Event{Kind: booking.EventPaymentRetry})
	assert.Equal(t, booking.OutcomeAlreadyApplied, d.Outcome)

	d = booking.Decide(snapshot(models.BookingConfirmed, "cs_1"), booking.Event{Kind: booking.EventPaymentRetry})
	assert.Equal(t, booking.OutcomeRejected, d.Outcome)
}

func TestDecideCancel(t *testing.T) {
	for _, state := range []models.BookingState{
		models.BookingCreated,
		models.BookingPaymentRequired,
		models.BookingPaymentPending,
		models.BookingPaymentSucceeded,
		models.BookingPaymentFailed,
	} {
		d := booking.Decide(snapshot(state, ""), booking.Event{Kind: booking.EventCancel, Reason: "client request"})
		assert.Equal(t, booking.OutcomeApply, d.Outcome, "state %s", state)
		assert.Equal(t, models.BookingCancelled, d.Next, "state %s", state)
	}

	d := booking.Decide(snapshot(models.BookingCancelled, ""), booking.Event{Kind: booking.EventCancel})
	assert.Equal(t, booking.OutcomeAlreadyApplied, d.Outcome)

	// A confirmed booking is settled; cancellation of delivered work is a
	// different process entirely.
	d = booking.Decide(snapshot(models.BookingConfirmed, "cs_1"), booking.Event{Kind: booking.EventCancel})
	assert.Equal(t, booking.OutcomeRejected, d.Outcome)
	assert.Equal(t, models.BookingConfirmed, d.Next)
}

// TestDecideNeverMutatesOffInvalidEdge sweeps every state against every
// event kind and checks that anything not applied leaves Next at the
// current state, so acknowledging a stale delivery can never move a record.
func TestDecideNeverMutatesOffInvalidEdge(t *testing.T) {
	states := []models.BookingState{
		models.BookingCreated,
		models.BookingPaymentRequired,
		models.BookingPaymentPending,
		models.BookingPaymentSucceeded,
		models.BookingConfirmed,
		models.BookingPaymentFailed,
		models.BookingCancelled,
	}
	events := []booking.Event{
		{Kind: booking.EventCreated},
		{Kind: booking.EventCheckoutOpened, PaymentRef: "cs_x"},
		{Kind: booking.EventPaymentSucceeded, PaymentRef: "cs_x"},
		{Kind: booking.EventPaymentFailed, PaymentRef: "cs_x"},
		{Kind: booking.EventPaymentRetry},
		{Kind: booking.EventConfirm},
		{Kind: booking.EventCancel},
		{Kind: booking.EventKind("booking.bogus")},
	}

	for _, state := range states {
		for _, ev := range events {
			d := booking.Decide(snapshot(state, "cs_1"), ev)
			if d.Outcome != booking.OutcomeApply {
				assert.Equal(t, state, d.Next, "state %s event %s", state, ev.Kind)
			}
			if state.IsTerminal() && d.Outcome == booking.OutcomeApply {
				t.Errorf("terminal state %s must not accept %s", state, ev.Kind)
			}
		}
	}
}
