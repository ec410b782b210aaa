package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tutorlaunch/api/internal/model"
)

type slotItem struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func toSlotItem(s model.Slot) slotItem {
	return slotItem{
		ID:    s.ID,
		Start: s.StartTime.UTC().Format(time.RFC3339),
		End:   s.EndTime.UTC().Format(time.RFC3339),
	}
}

// ListSlots returns open slots, topping up the seed pool first so the page
// never renders an empty calendar. Seeding trouble is logged, not surfaced.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := time.Now().UTC()
	if h.seeder != nil {
		if err := h.seeder.EnsureMinimum(r.Context(), now); err != nil {
			h.logger.Error("slot seeding failed", "err", err)
		}
	}

	slots, err := h.slots.ListOpenSlots(r.Context(), now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, toSlotItem(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": items})
}

type createSlotRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CreateSlot is the admin-key-protected manual slot creation.
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start")
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end")
		return
	}

	slot, err := h.slots.CreateSlot(r.Context(), start, end)
	if err != nil {
		if errors.Is(err, model.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, "end must be after start")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create slot")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"slot": toSlotItem(slot)})
}
