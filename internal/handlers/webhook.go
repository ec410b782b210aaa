package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/tutorlaunch/api/internal/payments"
)

// Webhook handles asynchronous payment-processor events. Signature
// verification is the auth on this route; nothing unverifiable ever reaches
// the state machine. Events that cannot apply cleanly are still acknowledged
// with 200 so the processor stops redelivering them.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	evt, err := h.provider.VerifyEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrWebhookUnavailable):
			h.logger.Warn("webhook rejected: signature or secret missing")
			writeError(w, http.StatusBadRequest, "webhook verification unavailable")
		case errors.Is(err, payments.ErrInvalidSignature):
			h.logger.Warn("webhook rejected: invalid signature")
			writeError(w, http.StatusBadRequest, "invalid signature")
		default:
			h.logger.Error("webhook payload rejected", "err", err)
			writeError(w, http.StatusBadRequest, "invalid payload")
		}
		return
	}

	if err := h.processor.Process(r.Context(), evt); err != nil {
		h.logger.Error("webhook processing failed", "event_id", evt.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
