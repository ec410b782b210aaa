package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tutorlaunch/api/internal/booking"
	"github.com/tutorlaunch/api/internal/email"
	"github.com/tutorlaunch/api/internal/model"
	"github.com/tutorlaunch/api/internal/payments"
	"github.com/tutorlaunch/api/internal/reminders"
	"github.com/tutorlaunch/api/internal/seed"
	"github.com/tutorlaunch/api/internal/storage/memory"
)

type stubProvider struct {
	session   payments.Session
	createErr error
	event     payments.Event
	verifyErr error
}

func (s *stubProvider) CreateCheckoutSession(_ context.Context, _ model.Booking, _, _ string) (payments.Session, error) {
	if s.createErr != nil {
		return payments.Session{}, s.createErr
	}
	return s.session, nil
}

func (s *stubProvider) VerifyEvent([]byte, string) (payments.Event, error) {
	if s.verifyErr != nil {
		return payments.Event{}, s.verifyErr
	}
	return s.event, nil
}

type fixture struct {
	handler  *Handler
	store    *memory.Store
	provider *stubProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	provider := &stubProvider{session: payments.Session{ID: "cs_1", URL: "https://checkout.example/cs_1"}}
	sender := email.NewNoopSender(logger)

	svc := booking.NewService(store, store, provider, logger, booking.ServiceConfig{AmountCents: 5000})
	processor := booking.NewProcessor(store, store, store, store, sender, nil, logger, 24*time.Hour)
	dispatcher := reminders.NewDispatcher(store, store, store, sender, nil, logger)
	seeder := seed.New(store, logger, seed.Config{MinOpenSlots: 3})

	return &fixture{
		handler:  New(store, store, seeder, svc, processor, provider, dispatcher, logger),
		store:    store,
		provider: provider,
	}
}

func (f *fixture) openSlot(t *testing.T) model.Slot {
	t.Helper()
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	slot, err := f.store.CreateSlot(context.Background(), start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slot
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestListSlots_SeedsWhenEmpty(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ListSlots(rec, httptest.NewRequest(http.MethodGet, "/slots", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Slots []struct {
			ID    string `json:"id"`
			Start string `json:"start"`
		} `json:"slots"`
	}
	decodeJSON(t, rec, &body)
	if len(body.Slots) != 3 {
		t.Fatalf("expected 3 seeded slots, got %d", len(body.Slots))
	}
	if _, err := time.Parse(time.RFC3339, body.Slots[0].Start); err != nil {
		t.Fatalf("start not RFC3339: %v", err)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	slot := f.openSlot(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing slot", `{"studentName":"Alex Rivers","studentEmail":"alex@example.com"}`},
		{"short name", `{"slotId":"` + slot.ID + `","studentName":"A","studentEmail":"alex@example.com"}`},
		{"bad email", `{"slotId":"` + slot.ID + `","studentName":"Alex Rivers","studentEmail":"not-an-email"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(tc.body))
			f.handler.CreateBooking(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateBooking_ReturnsCheckoutURL(t *testing.T) {
	f := newFixture(t)
	slot := f.openSlot(t)

	body := `{"slotId":"` + slot.ID + `","studentName":"Alex Rivers","studentEmail":"alex@example.com","goal":"algebra"}`
	rec := httptest.NewRecorder()
	f.handler.CreateBooking(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["checkoutUrl"] != "https://checkout.example/cs_1" {
		t.Fatalf("unexpected checkoutUrl %q", resp["checkoutUrl"])
	}
}

func TestCreateBooking_SlotUnavailable(t *testing.T) {
	f := newFixture(t)
	slot := f.openSlot(t)
	if err := f.store.MarkBooked(context.Background(), slot.ID); err != nil {
		t.Fatalf("mark booked: %v", err)
	}

	body := `{"slotId":"` + slot.ID + `","studentName":"Alex Rivers","studentEmail":"alex@example.com"}`
	rec := httptest.NewRecorder()
	f.handler.CreateBooking(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["error"] != "Slot unavailable" {
		t.Fatalf("unexpected error %q", resp["error"])
	}
}

func TestCreateBooking_GatewayUnconfigured(t *testing.T) {
	f := newFixture(t)
	slot := f.openSlot(t)
	f.provider.createErr = payments.ErrGatewayUnconfigured

	body := `{"slotId":"` + slot.ID + `","studentName":"Alex Rivers","studentEmail":"alex@example.com"}`
	rec := httptest.NewRecorder()
	f.handler.CreateBooking(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestWebhook_UnverifiableRejectedWithoutStateChange(t *testing.T) {
	f := newFixture(t)
	slot := f.openSlot(t)
	b, err := f.store.CreateBooking(context.Background(), model.Booking{SlotID: slot.ID, StudentName: "Alex Rivers", StudentEmail: "alex@example.com", AmountCents: 5000})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	for _, verifyErr := range []error{payments.ErrWebhookUnavailable, payments.ErrInvalidSignature} {
		f.provider.verifyErr = verifyErr
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{}`))
		f.handler.Webhook(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d", verifyErr, rec.Code)
		}
	}

	got, _ := f.store.GetBooking(context.Background(), b.ID)
	if got.Status != model.StatusPending {
		t.Fatalf("unverified webhook must not change state, got %s", got.Status)
	}
}

func TestWebhook_CompletedEventConfirmsBooking(t *testing.T) {
	f := newFixture(t)
	slot := f.openSlot(t)
	b, err := f.store.CreateBooking(context.Background(), model.Booking{SlotID: slot.ID, StudentName: "Alex Rivers", StudentEmail: "alex@example.com", AmountCents: 5000})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	f.provider.event = payments.Event{
		ID:              "evt_1",
		Kind:            payments.KindCheckoutCompleted,
		Type:            "checkout.session.completed",
		BookingID:       b.ID,
		PaymentIntentID: "pi_1",
	}
	rec := httptest.NewRecorder()
	f.handler.Webhook(rec, httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp map[string]bool
	decodeJSON(t, rec, &resp)
	if !resp["received"] {
		t.Fatalf("expected received=true, got %v", resp)
	}

	got, _ := f.store.GetBooking(context.Background(), b.ID)
	if got.Status != model.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got.Status)
	}
}

func TestWebhook_IrrelevantEventAcknowledged(t *testing.T) {
	f := newFixture(t)
	f.provider.event = payments.Event{ID: "evt_2", Kind: payments.KindIgnored, Type: "invoice.paid"}

	rec := httptest.NewRecorder()
	f.handler.Webhook(rec, httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for irrelevant event, got %d", rec.Code)
	}
}

func TestDispatchReminders_ReturnsCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := f.openSlot(t)
	b, _ := f.store.CreateBooking(ctx, model.Booking{SlotID: slot.ID, StudentName: "Alex Rivers", StudentEmail: "alex@example.com", AmountCents: 5000})
	if err := f.store.MarkBooked(ctx, slot.ID); err != nil {
		t.Fatalf("mark booked: %v", err)
	}
	if err := f.store.Confirm(ctx, b.ID, "pi_1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, _, err := f.store.CreateReminder(ctx, b.ID, time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatalf("create reminder: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.DispatchReminders(rec, httptest.NewRequest(http.MethodPost, "/reminders", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]int
	decodeJSON(t, rec, &resp)
	if resp["sent"] != 1 || resp["pending"] != 0 {
		t.Fatalf("expected sent=1 pending=0, got %v", resp)
	}
}

func TestAdminListBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := f.openSlot(t)
	if _, err := f.store.CreateBooking(ctx, model.Booking{SlotID: slot.ID, StudentName: "Alex Rivers", StudentEmail: "alex@example.com", Goal: "algebra", AmountCents: 5000}); err != nil {
		t.Fatalf("create booking: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.ListBookings(rec, httptest.NewRequest(http.MethodGet, "/admin/bookings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Bookings []adminBookingItem `json:"bookings"`
	}
	decodeJSON(t, rec, &resp)
	if len(resp.Bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(resp.Bookings))
	}
	got := resp.Bookings[0]
	if got.StudentName != "Alex Rivers" || got.Status != model.StatusPending || got.Goal != "algebra" {
		t.Fatalf("unexpected booking %+v", got)
	}
	if _, err := time.Parse(time.RFC3339, got.Start); err != nil {
		t.Fatalf("start not RFC3339: %v", err)
	}
}

func TestCreateSlot(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	body := `{"start":"2026-09-10T09:00:00Z","end":"2026-09-10T10:00:00Z"}`
	f.handler.CreateSlot(rec, httptest.NewRequest(http.MethodPost, "/slots", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	body = `{"start":"2026-09-10T10:00:00Z","end":"2026-09-10T09:00:00Z"}`
	f.handler.CreateSlot(rec, httptest.NewRequest(http.MethodPost, "/slots", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	body = `{"start":"next tuesday","end":"2026-09-10T10:00:00Z"}`
	f.handler.CreateSlot(rec, httptest.NewRequest(http.MethodPost, "/slots", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unparseable time, got %d", rec.Code)
	}
}
