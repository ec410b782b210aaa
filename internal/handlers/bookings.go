package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/tutorlaunch/api/internal/model"
	"github.com/tutorlaunch/api/internal/payments"
)

type createBookingRequest struct {
	SlotID       string `json:"slotId"`
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
	Goal         string `json:"goal"`
}

// CreateBooking validates the request, persists a pending booking, and hands
// back the hosted checkout URL. The slot stays open until payment clears.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.SlotID = strings.TrimSpace(req.SlotID)
	req.StudentName = strings.TrimSpace(req.StudentName)
	req.StudentEmail = strings.TrimSpace(req.StudentEmail)
	req.Goal = strings.TrimSpace(req.Goal)

	if req.SlotID == "" {
		writeError(w, http.StatusBadRequest, "slotId is required")
		return
	}
	if len(req.StudentName) < 2 {
		writeError(w, http.StatusBadRequest, "studentName must be at least 2 characters")
		return
	}
	if addr, err := mail.ParseAddress(req.StudentEmail); err != nil || addr.Address != req.StudentEmail {
		writeError(w, http.StatusBadRequest, "studentEmail must be a valid email address")
		return
	}

	_, checkoutURL, err := h.svc.Book(r.Context(), req.SlotID, req.StudentName, req.StudentEmail, req.Goal)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSlotUnavailable):
			writeError(w, http.StatusConflict, "Slot unavailable")
		case errors.Is(err, payments.ErrGatewayUnconfigured):
			// Operational state, not a bug: payments are simply off.
			h.logger.Warn("booking attempted with payments unconfigured")
			writeError(w, http.StatusServiceUnavailable, "payments not available")
		default:
			h.logger.Error("create booking failed", "err", err)
			writeError(w, http.StatusBadGateway, "failed to start checkout")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"checkoutUrl": checkoutURL})
}
