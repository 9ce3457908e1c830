package bookingRepo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func mongoFindOptions(limit int64) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "last_transition_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}
