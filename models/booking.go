package models

import "time"

// BookingState is the single source of truth for how far a booking has
// progressed through the reservation/payment lifecycle.
type BookingState string

const (
	BookingCreated          BookingState = "CREATED"
	BookingPaymentRequired  BookingState = "PAYMENT_REQUIRED"
	BookingPaymentPending   BookingState = "PAYMENT_PENDING"
	BookingPaymentSucceeded BookingState = "PAYMENT_SUCCEEDED"
	BookingConfirmed        BookingState = "CONFIRMED"
	BookingPaymentFailed    BookingState = "PAYMENT_FAILED"
	BookingCancelled        BookingState = "CANCELLED"
)

// IsTerminal reports whether no further transitions may leave the state.
// PAYMENT_FAILED is deliberately not terminal: a fresh checkout may reopen
// PAYMENT_REQUIRED for the same booking.
func (s BookingState) IsTerminal() bool {
	return s == BookingConfirmed || s == BookingCancelled
}

// Booking is a single booking attempt between a client and a builder.
// It is never hard-deleted; cancellation and payment failure are recorded
// as states so the audit trail survives.
type Booking struct {
	ID            string `bson:"id" json:"id"`
	BuilderID     string `bson:"builder_id" json:"builder_id"`
	SessionTypeID string `bson:"session_type_id" json:"session_type_id"`

	// ClientID is empty for anonymous bookings until the record is claimed
	// by a signed-in user. Once set it is never reassigned.
	ClientID string `bson:"client_id,omitempty" json:"client_id,omitempty"`

	// Opaque references into the calendar-scheduling collaborator.
	// Written exactly once, either at creation or when a pre-created
	// anonymous shell is attached to a scheduled event.
	CalendarEventRef   string `bson:"calendar_event_ref,omitempty" json:"calendar_event_ref,omitempty"`
	CalendarInviteeRef string `bson:"calendar_invitee_ref,omitempty" json:"calendar_invitee_ref,omitempty"`

	StartTime time.Time `bson:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime   time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`

	State BookingState `bson:"state" json:"state"`

	// PaymentRef is the payment collaborator's checkout session reference.
	// Set at most once per active checkout; replaced only when the prior
	// session expired or failed.
	PaymentRef string `bson:"payment_ref,omitempty" json:"payment_ref,omitempty"`

	// Price snapshot taken from the session type at creation so later
	// checkout attempts charge what the client saw.
	AmountCents int64  `bson:"amount_cents" json:"amount_cents"`
	Currency    string `bson:"currency" json:"currency"`

	// CorrelationID links an anonymous shell to the scheduling callback
	// that completes it. Ownership of the shell is proven with a signed
	// claim token, never by the bare correlation id.
	CorrelationID string `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`

	CustomQuestionResponses map[string]string `bson:"custom_question_responses,omitempty" json:"custom_question_responses,omitempty"`

	LastTransitionAt time.Time `bson:"last_transition_at" json:"last_transition_at"`
	LastError        string    `bson:"last_error,omitempty" json:"last_error,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
