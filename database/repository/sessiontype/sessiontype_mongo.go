package sessionTypeRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"builderhub/database"
	"builderhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionTypeRepo implements SessionTypeRepository using MongoDB.
type MongoSessionTypeRepo struct {
	coll *mongo.Collection
}

// NewMongoSessionTypeRepo creates a new SessionTypeRepository backed by MongoDB.
func NewMongoSessionTypeRepo() SessionTypeRepository {
	coll := database.MongoClient.Database("builderhub").Collection("session_types")
	repo := &MongoSessionTypeRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create session type indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoSessionTypeRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "builder_id", Value: 1}, {Key: "active", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// GetByID retrieves a session type by its id.
func (r *MongoSessionTypeRepo) GetByID(ctx context.Context, id string) (*models.SessionType, error) {
	var st models.SessionType
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&st); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch session type %s: %w", id, err)
	}
	return &st, nil
}

// GetByBuilder lists a builder's active session types.
func (r *MongoSessionTypeRepo) GetByBuilder(ctx context.Context, builderID string) ([]models.SessionType, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"builder_id": builderID, "active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list session types for builder %s: %w", builderID, err)
	}
	defer cursor.Close(ctx)

	var types []models.SessionType
	for cursor.Next(ctx) {
		var st models.SessionType
		if err := cursor.Decode(&st); err != nil {
			return nil, fmt.Errorf("failed to decode session type: %w", err)
		}
		types = append(types, st)
	}
	return types, nil
}

// Create inserts a new session type.
func (r *MongoSessionTypeRepo) Create(ctx context.Context, st *models.SessionType) error {
	now := time.Now()
	st.CreatedAt = now
	st.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, st); err != nil {
		return fmt.Errorf("failed to create session type: %w", err)
	}
	return nil
}
