package model

import "time"

// Booking status values. Pending is the only non-terminal state; a booking
// moves forward exactly once, to Confirmed, Cancelled, or ConfirmedConflict.
const (
	StatusPending           = "pending"
	StatusConfirmed         = "confirmed"
	StatusCancelled         = "cancelled"
	StatusConfirmedConflict = "confirmed_conflict"
)

// Slot is a bookable calendar window. IsBooked flips to true exactly once,
// when a payment for it clears.
type Slot struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	IsBooked  bool
	CreatedAt time.Time
}

// Booking tracks a student's request for a slot through payment. The slot is
// not reserved at creation; it stays open until a checkout actually completes,
// so abandoned checkouts never starve availability.
type Booking struct {
	ID                string
	SlotID            string
	StudentName       string
	StudentEmail      string
	Goal              string
	AmountCents       int64
	Status            string
	CheckoutSessionID string
	PaymentIntentID   string
	CreatedAt         time.Time
}

// Reminder is a one-shot notification scheduled 24h before a confirmed
// booking's slot start.
type Reminder struct {
	ID        string
	BookingID string
	SendAt    time.Time
	Sent      bool
	CreatedAt time.Time
}

// Terminal reports whether a booking status permits no further transitions.
func Terminal(status string) bool {
	return status == StatusConfirmed || status == StatusCancelled || status == StatusConfirmedConflict
}
