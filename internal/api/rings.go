package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"zsembells/pkg/model"
	"zsembells/pkg/store"
)

const (
	defaultRingLimit = 20
	maxRingLimit     = 500
)

// RingHandler serves the ring history and manual rings.
type RingHandler struct {
	ringer RingView
	store  store.RingStore
}

// NewRingHandler creates a new RingHandler.
func NewRingHandler(r RingView, st store.RingStore) *RingHandler {
	return &RingHandler{ringer: r, store: st}
}

// RingResponse acknowledges a queued manual ring.
type RingResponse struct {
	Kind    model.BellKind `json:"kind"`
	Queued  bool           `json:"queued"`
	Pending int            `json:"pending_rings"`
}

// HandleList returns the most recent rings, newest first.
func (h *RingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultRingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRingLimit)
	}

	rings, err := h.store.RecentRings(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to load rings", "error", err)
		http.Error(w, "Failed to load rings", http.StatusInternalServerError)
		return
	}
	if rings == nil {
		rings = []*model.RingEvent{}
	}
	writeJSON(w, http.StatusOK, rings)
}

// HandleRing queues a manual ring of the bell named in the path.
func (h *RingHandler) HandleRing(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.ParseBellKind(r.PathValue("kind"))
	if !ok {
		http.Error(w, "unknown bell kind, want 'work' or 'break'", http.StatusBadRequest)
		return
	}

	if !h.ringer.Enqueue(kind, model.SourceManual) {
		slog.Warn("Manual ring rejected", "kind", kind, "pending", h.ringer.Pending())
		http.Error(w, "ring already queued or queue full", http.StatusConflict)
		return
	}

	slog.Info("Manual ring queued", "kind", kind, "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, RingResponse{
		Kind:    kind,
		Queued:  true,
		Pending: h.ringer.Pending(),
	})
}
