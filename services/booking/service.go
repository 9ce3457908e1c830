package booking

import (
	"context"
	"time"

	bookingRepo "builderhub/database/repository/booking"
	sessionTypeRepo "builderhub/database/repository/sessiontype"
	"builderhub/models"
	"builderhub/services/payment"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// The correlation id travels through the scheduling provider's custom
// question payload under this key.
const correlationQuestionKey = "correlation_id"

// DefaultLifecycleService implements LifecycleService.
type DefaultLifecycleService struct {
	Bookings     bookingRepo.BookingRepository
	SessionTypes sessionTypeRepo.SessionTypeRepository
	Gateway      payment.Gateway
	Executor     *TransitionExecutor
	// EventCache deduplicates webhook deliveries by provider event id.
	EventCache *redis.Client
	Logger     *zap.Logger
	// ClaimTokenTTL bounds how long an anonymous booking stays claimable.
	ClaimTokenTTL time.Duration
}

// GetBooking returns the persisted booking record.
func (s *DefaultLifecycleService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	if id == "" {
		return nil, wrapValidation("booking id is required")
	}
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// CancelBooking applies the explicit cancel edge. Cancelling a booking
// already in a terminal state is reported as a validation failure rather
// than silently ignored.
func (s *DefaultLifecycleService) CancelBooking(ctx context.Context, id, reason string) (*models.Booking, error) {
	if id == "" {
		return nil, wrapValidation("booking id is required")
	}

	res, err := s.Executor.Apply(ctx, id, Event{Kind: EventCancel, Reason: reason})
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeRejected {
		return nil, wrapValidation("booking can no longer be cancelled")
	}
	return res.Booking, nil
}

func (s *DefaultLifecycleService) claimTokenTTL() time.Duration {
	if s.ClaimTokenTTL > 0 {
		return s.ClaimTokenTTL
	}
	return 7 * 24 * time.Hour
}
