package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"builderhub/config"
	"builderhub/models"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const metadataBookingID = "booking_id"

// StripeGateway implements Gateway on top of Stripe Checkout. The API key
// is global (stripe.Key, set in main from config); the webhook secret is
// read from config per verification.
type StripeGateway struct {
	Logger *zap.Logger
}

// NewStripeGateway creates a Stripe-backed payment gateway.
func NewStripeGateway(logger *zap.Logger) *StripeGateway {
	return &StripeGateway{Logger: logger}
}

// CreateCheckoutSession opens a Stripe Checkout session for the booking.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params models.CheckoutParams) (*models.CheckoutSession, error) {
	sessionParams := checkoutSessionParams(params)
	sessionParams.Context = ctx

	sess, err := checkoutsession.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session create failed: %w", err)
	}

	g.Logger.Info("stripe checkout session created",
		zap.String("bookingId", params.BookingID),
		zap.String("sessionRef", sess.ID))

	return convertSession(sess), nil
}

// checkoutSessionParams maps the normalized checkout request onto the Stripe
// API shape. Currency falls back to the platform default when the session
// type never set one.
func checkoutSessionParams(params models.CheckoutParams) *stripe.CheckoutSessionParams {
	currency := params.Currency
	if currency == "" {
		currency = config.AppConfig.DefaultCurrency
	}

	out := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(params.SuccessURL),
		CancelURL:         stripe.String(params.CancelURL),
		ClientReferenceID: stripe.String(params.BookingID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(params.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(params.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	out.AddMetadata(metadataBookingID, params.BookingID)
	return out
}

// RetrieveSession fetches a Stripe Checkout session by its id.
func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionRef string) (*models.CheckoutSession, error) {
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx

	sess, err := checkoutsession.Get(sessionRef, getParams)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session %s retrieve failed: %w", sessionRef, err)
	}
	return convertSession(sess), nil
}

// VerifyWebhook validates the Stripe-Signature header and maps the event
// onto the closed set the reconciliation flow understands.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*models.PaymentWebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, config.AppConfig.StripeWebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}

	out := &models.PaymentWebhookEvent{EventID: event.ID, Kind: models.WebhookIgnored}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		out.Kind = models.WebhookCheckoutCompleted
	case "checkout.session.expired":
		out.Kind = models.WebhookCheckoutExpired
	case "checkout.session.async_payment_failed":
		out.Kind = models.WebhookPaymentFailed
	default:
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("stripe webhook payload decode failed: %w", err)
	}

	// completed is delivered for async payment methods before the charge
	// settles; those resolve later via async_payment_* events.
	if event.Type == "checkout.session.completed" &&
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		out.Kind = models.WebhookIgnored
		return out, nil
	}

	out.SessionRef = sess.ID
	out.BookingID = bookingIDFrom(&sess)
	return out, nil
}

func convertSession(sess *stripe.CheckoutSession) *models.CheckoutSession {
	out := &models.CheckoutSession{
		SessionRef:  sess.ID,
		RedirectURL: sess.URL,
		Status:      models.CheckoutOpen,
		BookingID:   bookingIDFrom(sess),
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentRef = sess.PaymentIntent.ID
	}

	switch {
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		out.Status = models.CheckoutExpired
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		out.Status = models.CheckoutPaid
	case sess.Status == stripe.CheckoutSessionStatusComplete:
		// Completed but unpaid: async payment still in flight.
		out.Status = models.CheckoutOpen
	}
	return out
}

func bookingIDFrom(sess *stripe.CheckoutSession) string {
	if id, ok := sess.Metadata[metadataBookingID]; ok && id != "" {
		return id
	}
	return sess.ClientReferenceID
}
