// Package handlers exposes the HTTP surface: public slot listing and booking,
// the payment webhook, the cron-triggered reminder run, and the admin reads.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tutorlaunch/api/internal/booking"
	"github.com/tutorlaunch/api/internal/payments"
	"github.com/tutorlaunch/api/internal/reminders"
	"github.com/tutorlaunch/api/internal/seed"
	"github.com/tutorlaunch/api/internal/storage"
)

type Handler struct {
	slots      storage.SlotStore
	bookings   storage.BookingStore
	seeder     *seed.Service
	svc        *booking.Service
	processor  *booking.Processor
	provider   payments.Provider
	dispatcher *reminders.Dispatcher
	logger     *slog.Logger
}

func New(
	slots storage.SlotStore,
	bookings storage.BookingStore,
	seeder *seed.Service,
	svc *booking.Service,
	processor *booking.Processor,
	provider payments.Provider,
	dispatcher *reminders.Dispatcher,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		slots:      slots,
		bookings:   bookings,
		seeder:     seeder,
		svc:        svc,
		processor:  processor,
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
