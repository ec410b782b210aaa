package handlers

import (
	"net/http"
	"time"
)

type adminBookingItem struct {
	ID           string `json:"id"`
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
	Goal         string `json:"goal"`
	Status       string `json:"status"`
	Start        string `json:"start"`
	End          string `json:"end"`
}

// ListBookings is the admin console read: every booking with its slot window,
// most recent sessions first. Conflict-flagged bookings show up here for
// manual refund review.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.bookings.ListBookings(r.Context(), 200)
	if err != nil {
		h.logger.Error("list bookings failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	items := make([]adminBookingItem, 0, len(records))
	for _, rec := range records {
		items = append(items, adminBookingItem{
			ID:           rec.Booking.ID,
			StudentName:  rec.Booking.StudentName,
			StudentEmail: rec.Booking.StudentEmail,
			Goal:         rec.Booking.Goal,
			Status:       rec.Booking.Status,
			Start:        rec.SlotStart.UTC().Format(time.RFC3339),
			End:          rec.SlotEnd.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": items})
}
