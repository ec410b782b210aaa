package handlers

import (
	"net/http"
	"time"
)

// DispatchReminders runs one reminder batch. Protected by the cron secret at
// the mux level; the scheduled job (or an operator) drives the cadence.
func (h *Handler) DispatchReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sent, pending, err := h.dispatcher.DispatchDue(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("reminder dispatch run failed", "err", err)
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent, "pending": pending})
}
