package models

// --- Payment collaborator DTOs ---

// CheckoutSessionStatus is the normalized status of a hosted checkout
// session as reported by the payment collaborator.
type CheckoutSessionStatus string

const (
	CheckoutOpen    CheckoutSessionStatus = "open"
	CheckoutPaid    CheckoutSessionStatus = "paid"
	CheckoutFailed  CheckoutSessionStatus = "failed"
	CheckoutExpired CheckoutSessionStatus = "expired"
)

// CheckoutParams describes the session to open with the payment
// collaborator. BookingID is embedded in the session metadata so that
// reconciliation is self-describing and needs no lookup table.
type CheckoutParams struct {
	BookingID   string
	AmountCents int64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the collaborator's view of a checkout session.
type CheckoutSession struct {
	SessionRef       string                `json:"session_ref"`
	RedirectURL      string                `json:"redirect_url,omitempty"`
	Status           CheckoutSessionStatus `json:"status"`
	PaymentIntentRef string                `json:"payment_intent_ref,omitempty"`
	BookingID        string                `json:"booking_id,omitempty"`
}

// PaymentWebhookKind is the closed set of webhook notifications the
// reconciliation flow consumes. Everything else is acknowledged and ignored.
type PaymentWebhookKind string

const (
	WebhookCheckoutCompleted PaymentWebhookKind = "checkout.completed"
	WebhookCheckoutExpired   PaymentWebhookKind = "checkout.expired"
	WebhookPaymentFailed     PaymentWebhookKind = "payment.failed"
	WebhookIgnored           PaymentWebhookKind = "ignored"
)

// PaymentWebhookEvent is a signature-verified, boundary-validated webhook
// payload. Only events carrying a booking id or session ref ever reach the
// state machine.
type PaymentWebhookEvent struct {
	EventID    string             `json:"event_id"`
	Kind       PaymentWebhookKind `json:"kind"`
	SessionRef string             `json:"session_ref,omitempty"`
	BookingID  string             `json:"booking_id,omitempty"`
}
