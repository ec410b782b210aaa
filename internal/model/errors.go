package model

import "errors"

var (
	// ErrInvalidRange rejects a slot whose end does not come after its start.
	ErrInvalidRange = errors.New("slot end must be after start")

	// ErrSlotUnavailable means the slot is missing or already booked.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means the booking is in a terminal state that the
	// requested transition cannot apply to.
	ErrInvalidTransition = errors.New("invalid booking status transition")
)
