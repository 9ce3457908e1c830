package booking

import (
	"errors"
	"fmt"
)

// Error taxonomy for the booking lifecycle. Handlers map these onto HTTP
// semantics with errors.Is; everything else is a 500.
var (
	// ErrValidation covers malformed input caught before any state mutation.
	ErrValidation = errors.New("invalid booking request")

	// ErrNotFound signals an absent booking or session type. Webhook
	// callers treat it as a possible create/reconcile race and retry with
	// backoff before giving up.
	ErrNotFound = errors.New("booking not found")

	// ErrCollaboratorUnavailable marks a retryable failure talking to the
	// payment collaborator. The booking is left exactly as it was.
	ErrCollaboratorUnavailable = errors.New("payment collaborator unavailable")

	// ErrConflictExceeded means optimistic transition retries were
	// exhausted. The event is queued for manual inspection, never dropped.
	ErrConflictExceeded = errors.New("transition conflict retries exhausted")

	// ErrClaimDenied means a claim token did not prove ownership of the
	// booking it targets.
	ErrClaimDenied = errors.New("claim token does not match booking")
)

func wrapValidation(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrValidation)
}

