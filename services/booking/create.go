package booking

import (
	"context"
	"errors"
	"fmt"

	bookingRepo "builderhub/database/repository/booking"
	"builderhub/models"
	"builderhub/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateBooking is the scheduling-callback entry point. It is idempotent
// under retry: the (builderId, calendarEventRef) pair identifies the
// booking, and a re-delivered callback returns the existing record. The
// flow never talks to the payment collaborator.
func (s *DefaultLifecycleService) CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	// Re-invocation with the same calendar event must be a no-op.
	if existing, err := s.Bookings.GetByExternalKey(ctx, input.BuilderID, input.CalendarEventRef); err != nil {
		return nil, err
	} else if existing != nil {
		return &CreateBookingResult{BookingID: existing.ID, State: existing.State}, nil
	}

	st, err := s.resolveSessionType(ctx, input.BuilderID, input.SessionTypeID)
	if err != nil {
		return nil, err
	}

	b, err := s.resolveRecord(ctx, input, st)
	if err != nil {
		return nil, err
	}

	res, err := s.Executor.Apply(ctx, b.ID, Event{Kind: EventCreated, Free: st.PriceCents == 0})
	if err != nil {
		return nil, err
	}

	out := &CreateBookingResult{BookingID: b.ID, State: res.Booking.State}
	if res.Booking.ClientID == "" && b.CorrelationID != "" {
		token, err := utils.GenerateClaimToken(b.ID, b.CorrelationID, s.claimTokenTTL())
		if err != nil {
			// The booking stands; the client just cannot claim it later.
			s.Logger.Error("failed to mint claim token", zap.String("bookingId", b.ID), zap.Error(err))
		} else {
			out.ClaimToken = token
		}
	}
	return out, nil
}

// CreateShell pre-creates an anonymous booking record so the scheduling
// callback arriving later can be linked back via the correlation id.
func (s *DefaultLifecycleService) CreateShell(ctx context.Context, input ShellInput) (*ShellResult, error) {
	if input.BuilderID == "" || input.SessionTypeID == "" {
		return nil, wrapValidation("builder id and session type id are required")
	}

	st, err := s.resolveSessionType(ctx, input.BuilderID, input.SessionTypeID)
	if err != nil {
		return nil, err
	}

	shell := &models.Booking{
		ID:            uuid.New().String(),
		BuilderID:     input.BuilderID,
		SessionTypeID: st.ID,
		ClientID:      input.ClientID,
		State:         models.BookingCreated,
		AmountCents:   st.PriceCents,
		Currency:      st.Currency,
		CorrelationID: uuid.New().String(),
	}
	if err := s.Bookings.Create(ctx, shell); err != nil {
		return nil, err
	}

	out := &ShellResult{BookingID: shell.ID, CorrelationID: shell.CorrelationID}
	if input.ClientID == "" {
		token, err := utils.GenerateClaimToken(shell.ID, shell.CorrelationID, s.claimTokenTTL())
		if err != nil {
			return nil, fmt.Errorf("failed to mint claim token: %w", err)
		}
		out.ClaimToken = token
	}

	s.Logger.Info("booking shell created",
		zap.String("bookingId", shell.ID),
		zap.String("builderId", shell.BuilderID))
	return out, nil
}

// resolveRecord either completes a correlated shell or inserts a fresh
// record for the calendar event.
func (s *DefaultLifecycleService) resolveRecord(ctx context.Context, input CreateBookingInput, st *models.SessionType) (*models.Booking, error) {
	if corrID := input.CustomQuestions[correlationQuestionKey]; corrID != "" {
		shell, err := s.Bookings.GetShellByCorrelationID(ctx, input.BuilderID, corrID)
		if err != nil {
			return nil, err
		}
		if shell != nil {
			// The bare correlation id may attach calendar data to the shell,
			// but never reassigns ownership; that requires the signed claim
			// token. A lost race here means another callback already
			// attached an event, so fall through to a fresh record.
			attached, err := s.Bookings.AttachCalendarEvent(ctx, shell.ID,
				input.CalendarEventRef, input.CalendarInviteeRef, input.StartTime, input.EndTime)
			if err != nil {
				return nil, err
			}
			if attached {
				shell.CalendarEventRef = input.CalendarEventRef
				shell.CalendarInviteeRef = input.CalendarInviteeRef
				return shell, nil
			}
		}
	}

	b := &models.Booking{
		ID:                      uuid.New().String(),
		BuilderID:               input.BuilderID,
		SessionTypeID:           st.ID,
		ClientID:                input.ClientID,
		CalendarEventRef:        input.CalendarEventRef,
		CalendarInviteeRef:      input.CalendarInviteeRef,
		StartTime:               input.StartTime,
		EndTime:                 input.EndTime,
		State:                   models.BookingCreated,
		AmountCents:             st.PriceCents,
		Currency:                st.Currency,
		CustomQuestionResponses: input.CustomQuestions,
	}
	if b.ClientID == "" {
		b.CorrelationID = uuid.New().String()
	}

	if err := s.Bookings.Create(ctx, b); err != nil {
		if errors.Is(err, bookingRepo.ErrDuplicateKey) {
			// Two callbacks raced on the insert; the winner's record is
			// authoritative.
			winner, gerr := s.Bookings.GetByExternalKey(ctx, input.BuilderID, input.CalendarEventRef)
			if gerr != nil {
				return nil, gerr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}
	return b, nil
}

func (s *DefaultLifecycleService) resolveSessionType(ctx context.Context, builderID, sessionTypeID string) (*models.SessionType, error) {
	st, err := s.SessionTypes.GetByID(ctx, sessionTypeID)
	if err != nil {
		return nil, err
	}
	if st == nil || st.BuilderID != builderID {
		return nil, fmt.Errorf("session type %s for builder %s: %w", sessionTypeID, builderID, ErrNotFound)
	}
	return st, nil
}

func validateCreateInput(input CreateBookingInput) error {
	switch {
	case input.BuilderID == "":
		return wrapValidation("builder id is required")
	case input.SessionTypeID == "":
		return wrapValidation("session type id is required")
	case input.CalendarEventRef == "":
		return wrapValidation("calendar event ref is required")
	case input.StartTime.IsZero() || input.EndTime.IsZero():
		return wrapValidation("start and end time are required")
	case !input.EndTime.After(input.StartTime):
		return wrapValidation("end time must be after start time")
	}
	return nil
}
