package reminders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tutorlaunch/api/internal/model"
	"github.com/tutorlaunch/api/internal/storage/memory"
)

type recordingSender struct {
	failFor map[string]bool
	sent    []string
}

func (s *recordingSender) Send(to, _, _ string) error {
	if s.failFor[to] {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, to)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func confirmedBookingWithReminder(t *testing.T, store *memory.Store, email string, start, sendAt time.Time) model.Booking {
	t.Helper()
	ctx := context.Background()
	slot, err := store.CreateSlot(ctx, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	b, err := store.CreateBooking(ctx, model.Booking{SlotID: slot.ID, StudentName: "Student", StudentEmail: email, AmountCents: 5000})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if err := store.MarkBooked(ctx, slot.ID); err != nil {
		t.Fatalf("mark booked: %v", err)
	}
	if err := store.Confirm(ctx, b.ID, "pi_"+b.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, _, err := store.CreateReminder(ctx, b.ID, sendAt); err != nil {
		t.Fatalf("create reminder: %v", err)
	}
	b.Status = model.StatusConfirmed
	return b
}

func TestDispatchDue_SendsOnceAndOnlyDue(t *testing.T) {
	store := memory.New()
	sender := &recordingSender{}
	d := NewDispatcher(store, store, store, sender, nil, testLogger())

	now := time.Now().UTC()
	confirmedBookingWithReminder(t, store, "due@example.com", now.Add(12*time.Hour), now.Add(-time.Minute))
	confirmedBookingWithReminder(t, store, "future@example.com", now.Add(72*time.Hour), now.Add(48*time.Hour))

	sent, pending, err := d.DispatchDue(context.Background(), now)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 sent, got %d", sent)
	}
	if pending != 1 {
		t.Fatalf("expected 1 pending, got %d", pending)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "due@example.com" {
		t.Fatalf("unexpected recipients %v", sender.sent)
	}

	// Second run must not resend the claimed reminder.
	sent, _, err = d.DispatchDue(context.Background(), now)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected 0 sent on second run, got %d", sent)
	}
}

func TestDispatchDue_FailureIsIsolatedAndRetried(t *testing.T) {
	store := memory.New()
	sender := &recordingSender{failFor: map[string]bool{"broken@example.com": true}}
	d := NewDispatcher(store, store, store, sender, nil, testLogger())

	now := time.Now().UTC()
	confirmedBookingWithReminder(t, store, "broken@example.com", now.Add(12*time.Hour), now.Add(-2*time.Minute))
	confirmedBookingWithReminder(t, store, "fine@example.com", now.Add(12*time.Hour), now.Add(-time.Minute))

	sent, pending, err := d.DispatchDue(context.Background(), now)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 sent despite one failure, got %d", sent)
	}
	if pending != 1 {
		t.Fatalf("failed reminder must stay pending, got %d", pending)
	}

	// Once the sender recovers, the next run picks the failed one up.
	sender.failFor = nil
	sent, pending, err = d.DispatchDue(context.Background(), now)
	if err != nil {
		t.Fatalf("retry dispatch: %v", err)
	}
	if sent != 1 || pending != 0 {
		t.Fatalf("expected retry to send the failed reminder, got sent=%d pending=%d", sent, pending)
	}
}

func TestDispatchDue_SkipsNonConfirmedBooking(t *testing.T) {
	store := memory.New()
	sender := &recordingSender{}
	d := NewDispatcher(store, store, store, sender, nil, testLogger())

	ctx := context.Background()
	now := time.Now().UTC()
	slot, _ := store.CreateSlot(ctx, now.Add(12*time.Hour), now.Add(13*time.Hour))
	b, _ := store.CreateBooking(ctx, model.Booking{SlotID: slot.ID, StudentName: "Student", StudentEmail: "conflict@example.com", AmountCents: 5000})
	if err := store.FlagConflict(ctx, b.ID, "pi_c"); err != nil {
		t.Fatalf("flag conflict: %v", err)
	}
	if _, _, err := store.CreateReminder(ctx, b.ID, now.Add(-time.Minute)); err != nil {
		t.Fatalf("create reminder: %v", err)
	}

	sent, pending, err := d.DispatchDue(ctx, now)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sent != 0 {
		t.Fatalf("conflict booking must not get a reminder, sent=%d", sent)
	}
	if pending != 0 {
		t.Fatalf("skipped reminder must be claimed, pending=%d", pending)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("unexpected sends %v", sender.sent)
	}
}
