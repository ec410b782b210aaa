package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tutorlaunch/api/internal/email"
	"github.com/tutorlaunch/api/internal/model"
	"github.com/tutorlaunch/api/internal/payments"
	"github.com/tutorlaunch/api/internal/storage"
)

const DefaultReminderLead = 24 * time.Hour

// Processor applies verified payment-processor events to booking and slot
// state. Events arrive at-least-once and possibly out of order, so every
// transition here is idempotent and terminal states never regress.
type Processor struct {
	slots     storage.SlotStore
	bookings  storage.BookingStore
	reminders storage.ReminderStore
	seen      storage.ProviderEventStore
	mail      email.Sender
	sink      EventSink
	logger    *slog.Logger

	reminderLead time.Duration
}

func NewProcessor(
	slots storage.SlotStore,
	bookings storage.BookingStore,
	reminders storage.ReminderStore,
	seen storage.ProviderEventStore,
	mail email.Sender,
	sink EventSink,
	logger *slog.Logger,
	reminderLead time.Duration,
) *Processor {
	if reminderLead <= 0 {
		reminderLead = DefaultReminderLead
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Processor{
		slots:        slots,
		bookings:     bookings,
		reminders:    reminders,
		seen:         seen,
		mail:         mail,
		sink:         sink,
		logger:       logger,
		reminderLead: reminderLead,
	}
}

// Process dispatches one verified event. A nil return acknowledges the event
// to the processor; a non-nil return asks for redelivery, so only storage
// failures escalate — every domain-level oddity (unknown booking, terminal
// state, lost slot race) is logged and acknowledged.
func (p *Processor) Process(ctx context.Context, evt payments.Event) error {
	if evt.ID != "" {
		fresh, err := p.seen.RecordProviderEvent(ctx, evt.ID, evt.Type)
		if err != nil {
			return err
		}
		if !fresh {
			p.logger.Info("duplicate payment event ignored", "event_id", evt.ID, "event_type", evt.Type)
			return nil
		}
	}

	err := p.apply(ctx, evt)
	if err != nil && evt.ID != "" {
		// Release the dedupe record so the processor's redelivery is retried
		// instead of being swallowed as a duplicate.
		if ferr := p.seen.ForgetProviderEvent(ctx, evt.ID); ferr != nil {
			p.logger.Error("forget provider event failed", "event_id", evt.ID, "err", ferr)
		}
	}
	return err
}

func (p *Processor) apply(ctx context.Context, evt payments.Event) error {
	switch evt.Kind {
	case payments.KindCheckoutCompleted:
		return p.handleCheckoutCompleted(ctx, evt)
	case payments.KindPaymentFailed:
		return p.handlePaymentFailed(ctx, evt)
	default:
		p.logger.Debug("payment event not relevant", "event_type", evt.Type)
		return nil
	}
}

func (p *Processor) handleCheckoutCompleted(ctx context.Context, evt payments.Event) error {
	if evt.BookingID == "" {
		p.logger.Info("completed checkout without booking metadata", "event_id", evt.ID)
		return nil
	}

	b, err := p.bookings.GetBooking(ctx, evt.BookingID)
	if errors.Is(err, model.ErrNotFound) {
		p.logger.Warn("completed checkout for unknown booking", "booking_id", evt.BookingID, "event_id", evt.ID)
		return nil
	}
	if err != nil {
		return err
	}

	switch b.Status {
	case model.StatusConfirmed:
		if b.PaymentIntentID != evt.PaymentIntentID && evt.PaymentIntentID != "" {
			p.logger.Warn("replayed completion carries a different payment intent",
				"booking_id", b.ID, "have", b.PaymentIntentID, "got", evt.PaymentIntentID)
			return nil
		}
		// Redelivery after a partial first run: make sure the reminder
		// exists, then stop. Emails are not resent.
		return p.ensureReminder(ctx, b)
	case model.StatusCancelled, model.StatusConfirmedConflict:
		p.logger.Warn("completed checkout for settled booking",
			"booking_id", b.ID, "status", b.Status, "event_id", evt.ID)
		return nil
	}

	slot, err := p.slots.GetSlot(ctx, b.SlotID)
	if err != nil {
		return err
	}

	// Claim the slot before confirming: MarkBooked is the atomic check-and-set
	// that decides the winner, so two paid bookings can never both confirm.
	if err := p.slots.MarkBooked(ctx, b.SlotID); err != nil {
		if !errors.Is(err, model.ErrSlotUnavailable) {
			return err
		}
		// A concurrent duplicate delivery may have already run to completion
		// for this same booking.
		if cur, gerr := p.bookings.GetBooking(ctx, b.ID); gerr == nil && cur.Status == model.StatusConfirmed {
			return nil
		}
		return p.flagConflict(ctx, b, evt)
	}

	if err := p.bookings.Confirm(ctx, b.ID, evt.PaymentIntentID); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			p.logger.Error("booking not confirmable after winning its slot",
				"booking_id", b.ID, "slot_id", b.SlotID)
			return nil
		}
		return err
	}
	b.Status = model.StatusConfirmed
	b.PaymentIntentID = evt.PaymentIntentID

	if _, _, err := p.reminders.CreateReminder(ctx, b.ID, slot.StartTime.Add(-p.reminderLead)); err != nil {
		return err
	}

	p.logger.Info("booking confirmed", "booking_id", b.ID, "slot_id", b.SlotID, "payment_intent", evt.PaymentIntentID)
	p.emit(ctx, "booking.confirmed.v1", b.ID, map[string]any{
		"booking_id":     b.ID,
		"slot_id":        b.SlotID,
		"payment_intent": evt.PaymentIntentID,
		"start_time":     slot.StartTime.UTC().Format(time.RFC3339),
	})

	// Email is best-effort: a provider outage must not roll back a paid
	// booking or make the processor redeliver.
	confSubject, confBody := email.ConfirmationEmail(b, slot)
	p.send(b, confSubject, confBody)
	receiptSubject, receiptBody := email.ReceiptEmail(b, slot)
	p.send(b, receiptSubject, receiptBody)
	return nil
}

func (p *Processor) flagConflict(ctx context.Context, b model.Booking, evt payments.Event) error {
	if err := p.bookings.FlagConflict(ctx, b.ID, evt.PaymentIntentID); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	p.logger.Warn("booking paid for an already-booked slot; flagged for manual review",
		"booking_id", b.ID, "slot_id", b.SlotID, "payment_intent", evt.PaymentIntentID)
	p.emit(ctx, "booking.conflict.v1", b.ID, map[string]any{
		"booking_id":     b.ID,
		"slot_id":        b.SlotID,
		"payment_intent": evt.PaymentIntentID,
	})
	return nil
}

func (p *Processor) handlePaymentFailed(ctx context.Context, evt payments.Event) error {
	if evt.BookingID == "" {
		return nil
	}

	err := p.bookings.Cancel(ctx, evt.BookingID)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		p.logger.Warn("payment failure for unknown booking", "booking_id", evt.BookingID)
		return nil
	case errors.Is(err, model.ErrInvalidTransition):
		// A failure event racing behind a completion must not regress state.
		p.logger.Info("late payment failure for settled booking", "booking_id", evt.BookingID)
		return nil
	default:
		return err
	}

	p.logger.Info("booking cancelled after payment failure", "booking_id", evt.BookingID)
	p.emit(ctx, "booking.cancelled.v1", evt.BookingID, map[string]any{
		"booking_id": evt.BookingID,
		"reason":     "payment_failed",
	})
	return nil
}

func (p *Processor) ensureReminder(ctx context.Context, b model.Booking) error {
	slot, err := p.slots.GetSlot(ctx, b.SlotID)
	if err != nil {
		return err
	}
	_, _, err = p.reminders.CreateReminder(ctx, b.ID, slot.StartTime.Add(-p.reminderLead))
	return err
}

func (p *Processor) emit(ctx context.Context, eventType, aggregateID string, payload map[string]any) {
	if err := p.sink.Emit(ctx, eventType, aggregateID, payload); err != nil {
		p.logger.Error("emit domain event failed", "event_type", eventType, "err", err)
	}
}

func (p *Processor) send(b model.Booking, subject, body string) {
	if err := p.mail.Send(b.StudentEmail, subject, body); err != nil {
		p.logger.Error("send email failed", "booking_id", b.ID, "subject", subject, "err", err)
	}
}
