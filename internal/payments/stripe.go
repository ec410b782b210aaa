package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tutorlaunch/api/internal/model"
)

const lineItemDescription = "Tutoring session deposit"

// StripeProvider implements Provider against Stripe Checkout.
type StripeProvider struct {
	secretKey        string
	webhookSecret    string
	webhookTolerance time.Duration
}

func NewStripeProvider(secretKey, webhookSecret string, webhookTolerance time.Duration) *StripeProvider {
	if webhookTolerance <= 0 {
		webhookTolerance = 5 * time.Minute
	}
	return &StripeProvider{
		secretKey:        strings.TrimSpace(secretKey),
		webhookSecret:    strings.TrimSpace(webhookSecret),
		webhookTolerance: webhookTolerance,
	}
}

// CreateCheckoutSession builds a one-off payment session for the booking
// deposit. Metadata carries booking_id and slot_id so the webhook can
// correlate the asynchronous outcome back to domain records; the same
// metadata is mirrored onto the payment intent.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, b model.Booking, successURL, cancelURL string) (Session, error) {
	if p.secretKey == "" {
		return Session{}, ErrGatewayUnconfigured
	}

	// Stripe uses a global API key. Keep usage limited to this call.
	stripe.Key = p.secretKey

	meta := map[string]string{
		"booking_id": b.ID,
		"slot_id":    b.SlotID,
	}
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		CustomerEmail:     stripe.String(b.StudentEmail),
		ClientReferenceID: stripe.String(b.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(b.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(lineItemDescription),
					},
				},
			},
		},
		Metadata: meta,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

// VerifyEvent checks the event signature and normalizes the payload. An
// unverifiable event is never handed to the state machine.
func (p *StripeProvider) VerifyEvent(payload []byte, signatureHeader string) (Event, error) {
	if p.webhookSecret == "" || strings.TrimSpace(signatureHeader) == "" {
		return Event{}, ErrWebhookUnavailable
	}

	evt, err := webhook.ConstructEventWithTolerance(payload, signatureHeader, p.webhookSecret, p.webhookTolerance)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{
		ID:   evt.ID,
		Kind: KindIgnored,
		Type: string(evt.Type),
	}

	switch string(evt.Type) {
	case "checkout.session.completed", "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
			return Event{}, fmt.Errorf("decode checkout session payload: %w", err)
		}
		out.BookingID = strings.TrimSpace(sess.Metadata["booking_id"])
		out.SlotID = strings.TrimSpace(sess.Metadata["slot_id"])
		out.CheckoutSessionID = sess.ID
		if sess.PaymentIntent != nil {
			out.PaymentIntentID = sess.PaymentIntent.ID
		}
		if string(evt.Type) == "checkout.session.completed" {
			out.Kind = KindCheckoutCompleted
		} else {
			out.Kind = KindPaymentFailed
		}

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
			return Event{}, fmt.Errorf("decode payment intent payload: %w", err)
		}
		out.Kind = KindPaymentFailed
		out.BookingID = strings.TrimSpace(intent.Metadata["booking_id"])
		out.SlotID = strings.TrimSpace(intent.Metadata["slot_id"])
		out.PaymentIntentID = intent.ID
	}

	return out, nil
}
