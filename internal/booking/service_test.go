package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tutorlaunch/api/internal/model"
	"github.com/tutorlaunch/api/internal/payments"
	"github.com/tutorlaunch/api/internal/storage/memory"
)

type fakeProvider struct {
	session payments.Session
	err     error
	calls   int
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, _ model.Booking, _, _ string) (payments.Session, error) {
	f.calls++
	if f.err != nil {
		return payments.Session{}, f.err
	}
	return f.session, nil
}

func (f *fakeProvider) VerifyEvent([]byte, string) (payments.Event, error) {
	return payments.Event{}, errors.New("not implemented")
}

func TestBook_ReturnsCheckoutURL(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	slot, err := store.CreateSlot(ctx, time.Now().UTC().Add(48*time.Hour), time.Now().UTC().Add(49*time.Hour))
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}

	gw := &fakeProvider{session: payments.Session{ID: "cs_1", URL: "https://checkout.example/cs_1"}}
	svc := NewService(store, store, gw, testLogger(), ServiceConfig{AmountCents: 5000})

	b, url, err := svc.Book(ctx, slot.ID, "Alex Rivers", "alex@example.com", "algebra")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if url != "https://checkout.example/cs_1" {
		t.Fatalf("unexpected checkout url %q", url)
	}
	if b.Status != model.StatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	if b.AmountCents != 5000 {
		t.Fatalf("expected deposit of 5000 cents, got %d", b.AmountCents)
	}

	stored, _ := store.GetBooking(ctx, b.ID)
	if stored.CheckoutSessionID != "cs_1" {
		t.Fatalf("expected checkout session attached, got %q", stored.CheckoutSessionID)
	}

	// The slot must stay open until the payment clears.
	got, _ := store.GetSlot(ctx, slot.ID)
	if got.IsBooked {
		t.Fatal("slot must not be reserved at booking time")
	}
}

func TestBook_SlotUnavailable(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	slot, _ := store.CreateSlot(ctx, time.Now().UTC().Add(48*time.Hour), time.Now().UTC().Add(49*time.Hour))
	if err := store.MarkBooked(ctx, slot.ID); err != nil {
		t.Fatalf("mark booked: %v", err)
	}

	gw := &fakeProvider{session: payments.Session{ID: "cs_1", URL: "u"}}
	svc := NewService(store, store, gw, testLogger(), ServiceConfig{})

	_, _, err := svc.Book(ctx, slot.ID, "Alex Rivers", "alex@example.com", "")
	if !errors.Is(err, model.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if gw.calls != 0 {
		t.Fatal("gateway must not be called for an unavailable slot")
	}
}

func TestBook_GatewayFailureKeepsBooking(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	slot, _ := store.CreateSlot(ctx, time.Now().UTC().Add(48*time.Hour), time.Now().UTC().Add(49*time.Hour))

	gw := &fakeProvider{err: payments.ErrGatewayUnconfigured}
	svc := NewService(store, store, gw, testLogger(), ServiceConfig{})

	b, _, err := svc.Book(ctx, slot.ID, "Alex Rivers", "alex@example.com", "")
	if !errors.Is(err, payments.ErrGatewayUnconfigured) {
		t.Fatalf("expected ErrGatewayUnconfigured, got %v", err)
	}
	// The pending booking survives so the customer can be recovered manually.
	if _, gerr := store.GetBooking(ctx, b.ID); gerr != nil {
		t.Fatalf("expected booking persisted despite gateway failure: %v", gerr)
	}
}
