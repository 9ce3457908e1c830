package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"builderhub/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo creates a new BookingRepository backed by MongoDB.
func NewMongoBookingRepo() BookingRepository {
	coll := database.MongoClient.Database("builderhub").Collection("bookings")
	repo := &MongoBookingRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create booking indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates the indexes the lifecycle invariants rely on:
// one booking per (builder, calendar event), one booking per checkout
// session, plus query indexes for correlation lookup and the pending sweep.
func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	nonEmptyEvent := bson.M{"calendar_event_ref": bson.M{"$gt": ""}}
	nonEmptyPayment := bson.M{"payment_ref": bson.M{"$gt": ""}}

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "builder_id", Value: 1}, {Key: "calendar_event_ref", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(nonEmptyEvent),
		},
		{
			Keys: bson.D{{Key: "payment_ref", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(nonEmptyPayment),
		},
		{Keys: bson.D{{Key: "builder_id", Value: 1}, {Key: "correlation_id", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "last_transition_at", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
