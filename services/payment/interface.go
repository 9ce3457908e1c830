package payment

import (
	"context"

	"builderhub/models"
)

// Gateway is the narrow surface the booking lifecycle consumes from the
// payment collaborator. The hosted checkout UI, payment methods and
// retries all live on the collaborator's side.
type Gateway interface {
	// CreateCheckoutSession opens a hosted checkout session. The booking id
	// in params is embedded in the session metadata.
	CreateCheckoutSession(ctx context.Context, params models.CheckoutParams) (*models.CheckoutSession, error)
	// RetrieveSession fetches the current view of a checkout session.
	RetrieveSession(ctx context.Context, sessionRef string) (*models.CheckoutSession, error)
	// VerifyWebhook checks the provider signature and translates the raw
	// payload into a boundary-validated event. Returns an error when the
	// signature is invalid.
	VerifyWebhook(payload []byte, signature string) (*models.PaymentWebhookEvent, error)
}
