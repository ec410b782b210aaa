package payments

import (
	"context"
	"errors"

	"github.com/tutorlaunch/api/internal/model"
)

var (
	// ErrGatewayUnconfigured means the processor secret key is absent. This is
	// an operational state ("payments not available"), not a bug.
	ErrGatewayUnconfigured = errors.New("payment gateway not configured")

	// ErrWebhookUnavailable means the event cannot be verified at all: either
	// the signature header or the configured webhook secret is missing.
	ErrWebhookUnavailable = errors.New("webhook verification unavailable")

	// ErrInvalidSignature means the event carried a signature that does not
	// verify against the configured secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Event kinds after normalization. Anything the booking state machine does
// not care about comes through as KindIgnored and is acknowledged untouched.
const (
	KindCheckoutCompleted = "checkout_completed"
	KindPaymentFailed     = "payment_failed"
	KindIgnored           = "ignored"
)

// Event is a verified, normalized payment-processor notification.
type Event struct {
	ID                string
	Kind              string
	Type              string // raw processor event type, for logging
	BookingID         string
	SlotID            string
	CheckoutSessionID string
	PaymentIntentID   string
}

// Session references a hosted payment page for one booking.
type Session struct {
	ID  string
	URL string
}

// Provider is the narrow capability surface the booking flow needs from a
// payment processor. Keeping it this small lets tests drive the state machine
// with deterministic fakes.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, b model.Booking, successURL, cancelURL string) (Session, error)
	VerifyEvent(payload []byte, signatureHeader string) (Event, error)
}
