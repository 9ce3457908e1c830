package booking_test

import (
	"context"
	"testing"
	"time"

	"builderhub/models"
	"builderhub/services/booking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callbackInput(sessionTypeID, calendarEventRef, clientID string) booking.CreateBookingInput {
	start := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)
	return booking.CreateBookingInput{
		BuilderID:          testBuilder,
		SessionTypeID:      sessionTypeID,
		CalendarEventRef:   calendarEventRef,
		CalendarInviteeRef: "INV-" + calendarEventRef,
		StartTime:          start,
		EndTime:            start.Add(30 * time.Minute),
		ClientID:           clientID,
	}
}

func TestCreateBookingFreeSessionConfirmsImmediately(t *testing.T) {
	repo := newFakeBookingRepo()
	svc, _ := newTestService(repo, newFakeGateway())

	res, err := svc.CreateBooking(context.Background(), callbackInput(freeSessionType, "CAL123", "client-1"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, res.State)
	assert.Empty(t, res.ClaimToken)

	stored, _ := repo.GetByID(context.Background(), res.BookingID)
	require.NotNil(t, stored)
	assert.Equal(t, models.BookingConfirmed, stored.State)
	assert.Empty(t, stored.PaymentRef)
}

func TestCreateBookingPricedSessionAwaitsPayment(t *testing.T) {
	repo := newFakeBookingRepo()
	svc, _ := newTestService(repo, newFakeGateway())

	res, err := svc.CreateBooking(context.Background(), callbackInput(paidSessionType, "CAL456", "client-1"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaymentRequired, res.State)

	stored, _ := repo.GetByID(context.Background(), res.BookingID)
	assert.Equal(t, int64(5000), stored.AmountCents)
	assert.Equal(t, "usd", stored.Currency)
}

func TestCreateBookingIdempotentUnderRedelivery(t *testing.T) {
	repo := newFakeBookingRepo()
	svc, _ := newTestService(repo, newFakeGateway())

	first, err := svc.CreateBooking(context.Background(), callbackInput(paidSessionType, "CAL456", "client-1"))
	require.NoError(t, err)

	second, err := svc.CreateBooking(context.Background(), callbackInput(paidSessionType, "CAL456", "client-1"))
	require.NoError(t, err)
	assert.Equal(t, first.BookingID, second.BookingID)
	assert.Equal(t, models.BookingPaymentRequired, second.State)

	all, _ := repo.GetByExternalKey(context.Background(), testBuilder, "CAL456")
	require.NotNil(t, all)
	assert.Len(t, repo.byID, 1)
}

func TestCreateBookingAnonymousMintsClaimToken(t *testing.T) {
	repo := newFakeBookingRepo()
	svc, _ := newTestService(repo, newFakeGateway())

	res, err := svc.CreateBooking(context.Background(), callbackInput(paidSessionType, "CAL789", ""))
	require.NoError(t, err)
	assert.NotEmpty(t, res.ClaimToken)

	stored, _ := repo.GetByID(context.Background(), res.BookingID)
	assert.Empty(t, stored.ClientID)
	assert.NotEmpty(t, stored.CorrelationID)
}

func TestCreateBookingRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(newFakeBookingRepo(), newFakeGateway())

	in := callbackInput(paidSessionType, "", "client-1")
	_, err := svc.CreateBooking(context.Background(), in)
	assert.ErrorIs(t, err, booking.ErrValidation)

	in = callbackInput(paidSessionType, "CAL1", "client-1")
	in.EndTime = in.StartTime
	_, err = svc.CreateBooking(context.Background(), in)
	assert.ErrorIs(t, err, booking.ErrValidation)

	in = callbackInput("st-unknown", "CAL1", "client-1")
	_, err = svc.CreateBooking(context.Background(), in)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestShellLinksLaterCallbackByCorrelationID(t *testing.T) {
	repo := newFakeBookingRepo()
	svc, _ := newTestService(repo, newFakeGateway())

	shell, err := svc.CreateShell(context.Background(), booking.ShellInput{
		BuilderID:     testBuilder,
		SessionTypeID: paidSessionType,
	})
	require.NoError(t, err)
	require.NotEmpty(t, shell.CorrelationID)
	require.NotEmpty(t, shell.ClaimToken)

	in := callbackInput(paidSessionType, "CAL456", "")
	in.CustomQuestions = map[string]string{"correlation_id": shell.CorrelationID}
	res, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)

	// The callback completed the shell instead of inserting a second record.
	assert.Equal(t, shell.BookingID, res.BookingID)
	assert.Len(t, repo.byID, 1)

	stored, _ := repo.GetByID(context.Background(), shell.BookingID)
	assert.Equal(t, "CAL456", stored.CalendarEventRef)
	assert.Equal(t, models.BookingPaymentRequired, stored.State)
	// The bare correlation id never assigns ownership.
	assert.Empty(t, stored.ClientID)
}

func TestShellUnknownCorrelationFallsBackToFreshRecord(t *testing.T) {
	repo := newFakeBookingRepo()
	svc, _ := newTestService(repo, newFakeGateway())

	in := callbackInput(paidSessionType, "CAL456", "client-1")
	in.CustomQuestions = map[string]string{"correlation_id": "not-a-real-shell"}
	res, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaymentRequired, res.State)
	assert.Len(t, repo.byID, 1)
}

func TestClaimBookingWithToken(t *testing.T) {
	repo := newFakeBookingRepo()
	svc, _ := newTestService(repo, newFakeGateway())

	res, err := svc.CreateBooking(context.Background(), callbackInput(paidSessionType, "CAL456", ""))
	require.NoError(t, err)
	require.NotEmpty(t, res.ClaimToken)

	claimed, err := svc.ClaimBooking(context.Background(), res.ClaimToken, "client-9")
	require.NoError(t, err)
	assert.Equal(t, "client-9", claimed.ClientID)

	// Re-presenting the token for the same client is a no-op.
	again, err := svc.ClaimBooking(context.Background(), res.ClaimToken, "client-9")
	require.NoError(t, err)
	assert.Equal(t, "client-9", again.ClientID)

	// A different client holding the token is refused once ownership is set.
	_, err = svc.ClaimBooking(context.Background(), res.ClaimToken, "client-10")
	assert.ErrorIs(t, err, booking.ErrClaimDenied)
}

func TestClaimBookingRejectsGarbageToken(t *testing.T) {
	svc, _ := newTestService(newFakeBookingRepo(), newFakeGateway())

	_, err := svc.ClaimBooking(context.Background(), "not.a.jwt", "client-1")
	assert.ErrorIs(t, err, booking.ErrClaimDenied)

	_, err = svc.ClaimBooking(context.Background(), "", "client-1")
	assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestCancelBooking(t *testing.T) {
	repo := newFakeBookingRepo()
	svc, _ := newTestService(repo, newFakeGateway())

	res, err := svc.CreateBooking(context.Background(), callbackInput(paidSessionType, "CAL456", "client-1"))
	require.NoError(t, err)

	cancelled, err := svc.CancelBooking(context.Background(), res.BookingID, "client request")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.State)

	// Cancelling twice reports the terminal state without error.
	again, err := svc.CancelBooking(context.Background(), res.BookingID, "client request")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, again.State)
}

func TestCancelConfirmedBookingRefused(t *testing.T) {
	repo := newFakeBookingRepo()
	svc, _ := newTestService(repo, newFakeGateway())

	res, err := svc.CreateBooking(context.Background(), callbackInput(freeSessionType, "CAL123", "client-1"))
	require.NoError(t, err)
	require.Equal(t, models.BookingConfirmed, res.State)

	_, err = svc.CancelBooking(context.Background(), res.BookingID, "changed my mind")
	assert.ErrorIs(t, err, booking.ErrValidation)
}
