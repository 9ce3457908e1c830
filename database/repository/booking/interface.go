package bookingRepo

import (
	"context"
	"time"

	"builderhub/models"

	"go.mongodb.org/mongo-driver/bson"
)

// BookingRepository defines data access for booking records. Lookups return
// (nil, nil) when no document matches so callers can distinguish absence
// from infrastructure failure.
type BookingRepository interface {
	// Create inserts a new booking record. A duplicate
	// (builder_id, calendar_event_ref) insert returns ErrDuplicateKey so
	// the creation flow can fall back to the already-persisted record.
	Create(ctx context.Context, b *models.Booking) error
	// GetByID retrieves a booking by its id.
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// GetByExternalKey retrieves a booking by its idempotency key.
	GetByExternalKey(ctx context.Context, builderID, calendarEventRef string) (*models.Booking, error)
	// GetByPaymentRef retrieves the booking holding a checkout session ref.
	GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Booking, error)
	// GetShellByCorrelationID retrieves an anonymous shell (no calendar
	// event attached yet) created for the given builder and correlation id.
	GetShellByCorrelationID(ctx context.Context, builderID, correlationID string) (*models.Booking, error)
	// UpdateState performs the conflict-checked transition write: the
	// update only matches when the stored state still equals expected.
	// Returns false when another transition won the race.
	UpdateState(ctx context.Context, id string, expected models.BookingState, set bson.M) (bool, error)
	// AttachCalendarEvent fills the write-once calendar fields of a shell.
	// Returns false when the shell already has an event attached.
	AttachCalendarEvent(ctx context.Context, id, eventRef, inviteeRef string, start, end time.Time) (bool, error)
	// Claim sets client_id on a booking that has none. Returns false when
	// the booking is already owned.
	Claim(ctx context.Context, id, clientID string) (bool, error)
	// ListPendingBefore returns PAYMENT_PENDING bookings whose last
	// transition predates cutoff, for the stale-checkout sweep.
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int64) ([]models.Booking, error)
}

// ErrDuplicateKey is returned by Create when the unique
// (builder_id, calendar_event_ref) index rejects the insert.
var ErrDuplicateKey = errDuplicateKey{}

type errDuplicateKey struct{}

func (errDuplicateKey) Error() string { return "booking already exists for calendar event" }
