// Package reminders dispatches due pre-session reminders. The batch operation
// is externally triggered (cron endpoint or the optional poll loop in main);
// the dispatcher itself keeps no timer.
package reminders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tutorlaunch/api/internal/booking"
	"github.com/tutorlaunch/api/internal/email"
	"github.com/tutorlaunch/api/internal/model"
	"github.com/tutorlaunch/api/internal/storage"
)

type Dispatcher struct {
	reminders storage.ReminderStore
	bookings  storage.BookingStore
	slots     storage.SlotStore
	mail      email.Sender
	sink      booking.EventSink
	logger    *slog.Logger
}

func NewDispatcher(reminders storage.ReminderStore, bookings storage.BookingStore, slots storage.SlotStore, mail email.Sender, sink booking.EventSink, logger *slog.Logger) *Dispatcher {
	if sink == nil {
		sink = booking.NopSink{}
	}
	return &Dispatcher{
		reminders: reminders,
		bookings:  bookings,
		slots:     slots,
		mail:      mail,
		sink:      sink,
		logger:    logger,
	}
}

// DispatchDue sends every reminder whose send time has passed. Reminders are
// processed independently: one failed send leaves that reminder unsent for
// the next run and never blocks the rest of the batch (at-least-once; a
// duplicate email is acceptable, a missed one is not). Returns how many were
// sent this run and how many remain unsent.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) (sent int, pending int, err error) {
	due, err := d.reminders.ListDueReminders(ctx, now)
	if err != nil {
		return 0, 0, err
	}

	for _, rem := range due {
		if err := d.dispatchOne(ctx, rem); err != nil {
			d.logger.Error("reminder dispatch failed; will retry next run",
				"reminder_id", rem.ID, "booking_id", rem.BookingID, "err", err)
			continue
		}
		sent++
	}

	pending, err = d.reminders.CountUnsentReminders(ctx)
	if err != nil {
		d.logger.Error("count unsent reminders failed", "err", err)
		err = nil
	}
	return sent, pending, err
}

func (d *Dispatcher) dispatchOne(ctx context.Context, rem model.Reminder) error {
	b, err := d.bookings.GetBooking(ctx, rem.BookingID)
	if err != nil {
		return err
	}
	if b.Status != model.StatusConfirmed {
		// Conflict-flagged bookings keep their reminder row but should not
		// get a session reminder; claim it so it stops showing up as due.
		d.logger.Warn("skipping reminder for non-confirmed booking", "booking_id", b.ID, "status", b.Status)
		_, err := d.reminders.MarkReminderSent(ctx, rem.ID)
		return err
	}

	slot, err := d.slots.GetSlot(ctx, b.SlotID)
	if err != nil {
		return err
	}

	subject, body := email.ReminderEmail(b, slot.StartTime)
	if err := d.mail.Send(b.StudentEmail, subject, body); err != nil {
		return err
	}

	claimed, err := d.reminders.MarkReminderSent(ctx, rem.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return err
	}
	if !claimed {
		// An overlapping run got there first; the duplicate email is covered
		// by the at-least-once policy.
		d.logger.Info("reminder already claimed by a concurrent run", "reminder_id", rem.ID)
	}
	if err := d.sink.Emit(ctx, "reminder.sent.v1", b.ID, map[string]any{
		"booking_id":  b.ID,
		"reminder_id": rem.ID,
		"slot_start":  slot.StartTime.UTC().Format(time.RFC3339),
	}); err != nil {
		d.logger.Error("emit domain event failed", "event_type", "reminder.sent.v1", "err", err)
	}
	d.logger.Info("reminder sent", "reminder_id", rem.ID, "booking_id", b.ID)
	return nil
}
