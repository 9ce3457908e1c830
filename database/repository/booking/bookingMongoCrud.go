package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"builderhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Create inserts a new booking record.
func (r *MongoBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.LastTransitionAt = now

	_, err := r.coll.InsertOne(ctx, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its id.
func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

// GetByExternalKey retrieves a booking by its (builder, calendar event) key.
func (r *MongoBookingRepo) GetByExternalKey(ctx context.Context, builderID, calendarEventRef string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{
		"builder_id":         builderID,
		"calendar_event_ref": calendarEventRef,
	})
}

// GetByPaymentRef retrieves the booking holding a checkout session ref.
func (r *MongoBookingRepo) GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"payment_ref": paymentRef})
}

// GetShellByCorrelationID retrieves an anonymous shell awaiting its
// calendar event.
func (r *MongoBookingRepo) GetShellByCorrelationID(ctx context.Context, builderID, correlationID string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{
		"builder_id":     builderID,
		"correlation_id": correlationID,
		"calendar_event_ref": bson.M{
			"$in": bson.A{nil, ""},
		},
	})
}

func (r *MongoBookingRepo) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	var b models.Booking
	if err := r.coll.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return &b, nil
}

// UpdateState performs the conflict-checked transition write. The filter
// pins both id and the expected current state; a MatchedCount of zero means
// a concurrent transition won and the caller must reload and re-decide.
func (r *MongoBookingRepo) UpdateState(ctx context.Context, id string, expected models.BookingState, set bson.M) (bool, error) {
	set["updated_at"] = time.Now()

	filter := bson.M{"id": id, "state": expected}
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update booking %s: %w", id, err)
	}
	return result.MatchedCount > 0, nil
}

// AttachCalendarEvent fills the write-once calendar fields of a shell. The
// filter requires the event ref to still be absent, making re-delivered
// scheduling callbacks no-ops.
func (r *MongoBookingRepo) AttachCalendarEvent(ctx context.Context, id, eventRef, inviteeRef string, start, end time.Time) (bool, error) {
	filter := bson.M{
		"id": id,
		"calendar_event_ref": bson.M{
			"$in": bson.A{nil, ""},
		},
	}
	update := bson.M{"$set": bson.M{
		"calendar_event_ref":   eventRef,
		"calendar_invitee_ref": inviteeRef,
		"start_time":           start,
		"end_time":             end,
		"updated_at":           time.Now(),
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to attach calendar event to booking %s: %w", id, err)
	}
	return result.MatchedCount > 0, nil
}

// Claim sets client_id on an unowned booking.
func (r *MongoBookingRepo) Claim(ctx context.Context, id, clientID string) (bool, error) {
	filter := bson.M{
		"id": id,
		"client_id": bson.M{
			"$in": bson.A{nil, ""},
		},
	}
	update := bson.M{"$set": bson.M{
		"client_id":  clientID,
		"updated_at": time.Now(),
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to claim booking %s: %w", id, err)
	}
	return result.MatchedCount > 0, nil
}

// ListPendingBefore returns PAYMENT_PENDING bookings stuck since before
// cutoff, oldest first.
func (r *MongoBookingRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int64) ([]models.Booking, error) {
	filter := bson.M{
		"state":              models.BookingPaymentPending,
		"last_transition_at": bson.M{"$lt": cutoff},
	}

	opts := mongoFindOptions(limit)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}
