package booking

import (
	"context"
	"fmt"

	"builderhub/models"
	"builderhub/utils"

	"go.uber.org/zap"
)

// ClaimBooking attaches a signed-in client identity to an anonymous
// booking. Ownership is proven by the claim token minted when the
// anonymous record was created; a guessed correlation id is never
// sufficient.
func (s *DefaultLifecycleService) ClaimBooking(ctx context.Context, claimToken, clientID string) (*models.Booking, error) {
	if claimToken == "" {
		return nil, wrapValidation("claim token is required")
	}
	if clientID == "" {
		return nil, wrapValidation("an authenticated client is required to claim a booking")
	}

	bookingID, correlationID, err := utils.ParseClaimToken(claimToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrClaimDenied)
	}

	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}
	if b.CorrelationID != correlationID {
		return nil, ErrClaimDenied
	}

	if b.ClientID == clientID {
		// Re-presented token for an already-claimed booking.
		return b, nil
	}
	if b.ClientID != "" {
		return nil, fmt.Errorf("booking already belongs to another client: %w", ErrClaimDenied)
	}

	claimed, err := s.Bookings.Claim(ctx, bookingID, clientID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost a race against another claim; reload to report the truth.
		b, err = s.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if b == nil || b.ClientID != clientID {
			return nil, fmt.Errorf("booking already belongs to another client: %w", ErrClaimDenied)
		}
		return b, nil
	}

	b.ClientID = clientID
	s.Logger.Info("anonymous booking claimed",
		zap.String("bookingId", bookingID),
		zap.String("clientId", clientID))
	return b, nil
}
