package storage

import (
	"context"
	"time"

	"github.com/tutorlaunch/api/internal/model"
)

// SlotStore owns slot records. MarkBooked is the single atomic check-and-set
// that decides which booking wins a slot under concurrent confirmations.
type SlotStore interface {
	CreateSlot(ctx context.Context, start, end time.Time) (model.Slot, error)
	GetSlot(ctx context.Context, id string) (model.Slot, error)
	ListOpenSlots(ctx context.Context, from time.Time) ([]model.Slot, error)
	ListSlotsFrom(ctx context.Context, from time.Time) ([]model.Slot, error)
	MarkBooked(ctx context.Context, id string) error
}

// BookingStore owns booking records. All mutators are conditional on the
// current status so that webhook replays and races resolve at the store, not
// in handler code.
type BookingStore interface {
	CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error)
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	AttachCheckoutSession(ctx context.Context, id, sessionID string) error
	Confirm(ctx context.Context, id, paymentIntentID string) error
	Cancel(ctx context.Context, id string) error
	FlagConflict(ctx context.Context, id, paymentIntentID string) error
	ListBookings(ctx context.Context, limit int) ([]AdminBooking, error)
}

// ReminderStore owns reminder records. CreateReminder is idempotent per
// booking; MarkReminderSent only succeeds while the reminder is unsent.
type ReminderStore interface {
	CreateReminder(ctx context.Context, bookingID string, sendAt time.Time) (model.Reminder, bool, error)
	ListDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	MarkReminderSent(ctx context.Context, id string) (bool, error)
	CountUnsentReminders(ctx context.Context) (int, error)
}

// ProviderEventStore records payment-processor event IDs so redelivered
// events can be acknowledged without re-running the state machine. Forget
// releases an ID whose processing failed, so the processor's redelivery is
// not mistaken for a handled duplicate.
type ProviderEventStore interface {
	RecordProviderEvent(ctx context.Context, eventID, eventType string) (bool, error)
	ForgetProviderEvent(ctx context.Context, eventID string) error
}

// AdminBooking is a booking joined with its slot window for the admin console.
type AdminBooking struct {
	Booking   model.Booking
	SlotStart time.Time
	SlotEnd   time.Time
}
