// Package memory holds an in-memory implementation of the storage interfaces.
// It backs unit tests and the sample mode the server runs in when no
// DATABASE_URL is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tutorlaunch/api/internal/model"
	"github.com/tutorlaunch/api/internal/storage"
)

type Store struct {
	mu             sync.Mutex
	slots          map[string]*model.Slot
	bookings       map[string]*model.Booking
	reminders      map[string]*model.Reminder // keyed by booking ID
	providerEvents map[string]struct{}
}

func New() *Store {
	return &Store{
		slots:          map[string]*model.Slot{},
		bookings:       map[string]*model.Booking{},
		reminders:      map[string]*model.Reminder{},
		providerEvents: map[string]struct{}{},
	}
}

func (s *Store) CreateSlot(_ context.Context, start, end time.Time) (model.Slot, error) {
	if !end.After(start) {
		return model.Slot{}, model.ErrInvalidRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := model.Slot{
		ID:        uuid.NewString(),
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	s.slots[slot.ID] = &slot
	return slot, nil
}

func (s *Store) GetSlot(_ context.Context, id string) (model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return model.Slot{}, model.ErrNotFound
	}
	return *slot, nil
}

func (s *Store) ListOpenSlots(_ context.Context, from time.Time) ([]model.Slot, error) {
	return s.listSlots(from, true), nil
}

func (s *Store) ListSlotsFrom(_ context.Context, from time.Time) ([]model.Slot, error) {
	return s.listSlots(from, false), nil
}

func (s *Store) listSlots(from time.Time, openOnly bool) []model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Slot
	for _, slot := range s.slots {
		if slot.StartTime.Before(from) {
			continue
		}
		if openOnly && slot.IsBooked {
			continue
		}
		out = append(out, *slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s *Store) MarkBooked(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok || slot.IsBooked {
		return model.ErrSlotUnavailable
	}
	slot.IsBooked = true
	return nil
}

func (s *Store) CreateBooking(_ context.Context, b model.Booking) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[b.SlotID]
	if !ok || slot.IsBooked {
		return model.Booking{}, model.ErrSlotUnavailable
	}
	b.ID = uuid.NewString()
	b.Status = model.StatusPending
	b.CreatedAt = time.Now().UTC()
	s.bookings[b.ID] = &b
	return b, nil
}

func (s *Store) GetBooking(_ context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	return *b, nil
}

func (s *Store) AttachCheckoutSession(_ context.Context, id, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.ErrNotFound
	}
	b.CheckoutSessionID = sessionID
	return nil
}

func (s *Store) Confirm(_ context.Context, id, paymentIntentID string) error {
	return s.transition(id, model.StatusConfirmed, paymentIntentID)
}

func (s *Store) FlagConflict(_ context.Context, id, paymentIntentID string) error {
	return s.transition(id, model.StatusConfirmedConflict, paymentIntentID)
}

func (s *Store) transition(id, to, paymentIntentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.ErrNotFound
	}
	if b.Status == to && b.PaymentIntentID == paymentIntentID {
		return nil
	}
	if b.Status != model.StatusPending {
		return model.ErrInvalidTransition
	}
	b.Status = to
	b.PaymentIntentID = paymentIntentID
	return nil
}

func (s *Store) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.ErrNotFound
	}
	switch b.Status {
	case model.StatusCancelled:
		return nil
	case model.StatusPending:
		b.Status = model.StatusCancelled
		return nil
	default:
		return model.ErrInvalidTransition
	}
}

func (s *Store) ListBookings(_ context.Context, limit int) ([]storage.AdminBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []storage.AdminBooking
	for _, b := range s.bookings {
		slot, ok := s.slots[b.SlotID]
		if !ok {
			continue
		}
		out = append(out, storage.AdminBooking{
			Booking:   *b,
			SlotStart: slot.StartTime,
			SlotEnd:   slot.EndTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotStart.After(out[j].SlotStart) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateReminder(_ context.Context, bookingID string, sendAt time.Time) (model.Reminder, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.reminders[bookingID]; ok {
		return *existing, false, nil
	}
	rem := model.Reminder{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		SendAt:    sendAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	s.reminders[bookingID] = &rem
	return rem, true, nil
}

func (s *Store) ListDueReminders(_ context.Context, now time.Time) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reminder
	for _, rem := range s.reminders {
		if !rem.Sent && !rem.SendAt.After(now) {
			out = append(out, *rem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SendAt.Before(out[j].SendAt) })
	return out, nil
}

func (s *Store) MarkReminderSent(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rem := range s.reminders {
		if rem.ID == id {
			if rem.Sent {
				return false, nil
			}
			rem.Sent = true
			return true, nil
		}
	}
	return false, model.ErrNotFound
}

func (s *Store) CountUnsentReminders(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rem := range s.reminders {
		if !rem.Sent {
			n++
		}
	}
	return n, nil
}

func (s *Store) RecordProviderEvent(_ context.Context, eventID, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.providerEvents[eventID]; seen {
		return false, nil
	}
	s.providerEvents[eventID] = struct{}{}
	return true, nil
}

func (s *Store) ForgetProviderEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.providerEvents, eventID)
	return nil
}
