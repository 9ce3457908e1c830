package booking

import (
	"context"
	"time"

	"builderhub/models"
)

// CreateBookingInput is the scheduling-provider callback payload: the slot
// has already been reserved on the calendar side when this arrives.
type CreateBookingInput struct {
	BuilderID          string            `json:"builder_id"`
	SessionTypeID      string            `json:"session_type_id"`
	CalendarEventRef   string            `json:"calendar_event_ref"`
	CalendarInviteeRef string            `json:"calendar_invitee_ref"`
	StartTime          time.Time         `json:"start_time"`
	EndTime            time.Time         `json:"end_time"`
	ClientID           string            `json:"-"`
	CustomQuestions    map[string]string `json:"custom_questions"`
}

// CreateBookingResult reports the booking id and the state the creation
// transition landed in. ClaimToken is only minted for anonymous bookings.
type CreateBookingResult struct {
	BookingID  string              `json:"booking_id"`
	State      models.BookingState `json:"state"`
	ClaimToken string              `json:"claim_token,omitempty"`
}

// ShellInput pre-creates an anonymous booking record before the scheduling
// embed opens, so the later provider callback can be linked back.
type ShellInput struct {
	BuilderID     string `json:"builder_id"`
	SessionTypeID string `json:"session_type_id"`
	ClientID      string `json:"-"`
}

// ShellResult carries the correlation id the wizard must thread through the
// scheduling provider's custom questions, plus the ownership proof.
type ShellResult struct {
	BookingID     string `json:"booking_id"`
	CorrelationID string `json:"correlation_id"`
	ClaimToken    string `json:"claim_token,omitempty"`
}

// CheckoutInput asks for a hosted checkout session for a priced booking.
type CheckoutInput struct {
	BookingID  string `json:"booking_id"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// CheckoutResult is what the client needs to reach the hosted checkout.
type CheckoutResult struct {
	CheckoutURL string              `json:"checkout_url"`
	PaymentRef  string              `json:"payment_ref"`
	State       models.BookingState `json:"state"`
}

// CheckoutStatusResult is the poll-path view: always the persisted booking
// state, never an optimistic one.
type CheckoutStatusResult struct {
	BookingID     string                       `json:"booking_id"`
	PaymentStatus models.CheckoutSessionStatus `json:"payment_status"`
	BookingState  models.BookingState          `json:"booking_state"`
}

// LifecycleService is the booking lifecycle orchestrator: creation,
// checkout, reconciliation, claiming and cancellation. All state mutation
// funnels through the transition executor.
type LifecycleService interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error)
	CreateShell(ctx context.Context, input ShellInput) (*ShellResult, error)
	ClaimBooking(ctx context.Context, claimToken, clientID string) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CancelBooking(ctx context.Context, id, reason string) (*models.Booking, error)
	StartCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error
	PollCheckoutStatus(ctx context.Context, sessionRef string) (*CheckoutStatusResult, error)
	SweepStalePending(ctx context.Context, olderThan time.Duration, limit int64) (int, error)
}
