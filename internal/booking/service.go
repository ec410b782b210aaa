// Package booking holds the slot/booking lifecycle: checkout orchestration
// and the webhook-driven state machine that settles payment outcomes.
package booking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tutorlaunch/api/internal/model"
	"github.com/tutorlaunch/api/internal/payments"
	"github.com/tutorlaunch/api/internal/storage"
)

type Service struct {
	slots    storage.SlotStore
	bookings storage.BookingStore
	gateway  payments.Provider
	logger   *slog.Logger

	amountCents int64
	successURL  string
	cancelURL   string
}

type ServiceConfig struct {
	AmountCents int64
	SuccessURL  string
	CancelURL   string
}

func NewService(slots storage.SlotStore, bookings storage.BookingStore, gateway payments.Provider, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.AmountCents <= 0 {
		cfg.AmountCents = 5000
	}
	return &Service{
		slots:       slots,
		bookings:    bookings,
		gateway:     gateway,
		logger:      logger,
		amountCents: cfg.AmountCents,
		successURL:  cfg.SuccessURL,
		cancelURL:   cfg.CancelURL,
	}
}

// Book creates a pending booking against an open slot and opens a checkout
// session for the deposit. The slot is deliberately NOT reserved here; it
// stays open until the payment actually clears, so an abandoned checkout
// never blocks other students.
//
// The booking is persisted before the gateway call: if the processor is down
// the customer can still be recovered from the admin console.
func (s *Service) Book(ctx context.Context, slotID, studentName, studentEmail, goal string) (model.Booking, string, error) {
	b, err := s.bookings.CreateBooking(ctx, model.Booking{
		SlotID:       slotID,
		StudentName:  studentName,
		StudentEmail: studentEmail,
		Goal:         goal,
		AmountCents:  s.amountCents,
	})
	if err != nil {
		return model.Booking{}, "", err
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, b, s.successURL, s.cancelURL)
	if err != nil {
		return b, "", fmt.Errorf("checkout session for booking %s: %w", b.ID, err)
	}

	if err := s.bookings.AttachCheckoutSession(ctx, b.ID, sess.ID); err != nil {
		// The session exists either way; the webhook correlates by metadata,
		// so losing this reference costs admin visibility, not correctness.
		s.logger.Error("attach checkout session failed", "booking_id", b.ID, "session_id", sess.ID, "err", err)
	} else {
		b.CheckoutSessionID = sess.ID
	}

	return b, sess.URL, nil
}
