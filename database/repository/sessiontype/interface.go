package sessionTypeRepo

import (
	"context"

	"builderhub/models"
)

// SessionTypeRepository defines data access for builder offerings.
type SessionTypeRepository interface {
	// GetByID retrieves a session type by its id; (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*models.SessionType, error)
	// GetByBuilder lists a builder's active session types.
	GetByBuilder(ctx context.Context, builderID string) ([]models.SessionType, error)
	// Create inserts a new session type.
	Create(ctx context.Context, st *models.SessionType) error
}
