package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"zsembells/pkg/clock"
	"zsembells/pkg/config"
	"zsembells/pkg/model"

	"github.com/gorilla/websocket"
)

// ClockView exposes the virtual clock state.
type ClockView interface {
	Status() clock.Status
}

// ScheduleView exposes the active timetable.
type ScheduleView interface {
	Current() *model.Schedule
	Timestamps() []config.TimeOfDay
}

// RingView exposes the ring queue.
type RingView interface {
	Last() *model.RingEvent
	Pending() int
	Enqueue(kind model.BellKind, source model.RingSource) bool
}

// StatusResponse is the payload of /api/status and the websocket feed.
type StatusResponse struct {
	clock.Status
	LastRing *model.RingEvent `json:"last_ring,omitempty"`
	Pending  int              `json:"pending_rings"`
}

// ScheduleResponse is the payload of /api/schedule.
type ScheduleResponse struct {
	*model.Schedule
	Timestamps []config.TimeOfDay `json:"timestamps"`
}

// StatusHandler serves the clock and bell status.
type StatusHandler struct {
	clock    ClockView
	schedule ScheduleView
	ringer   RingView
	interval time.Duration
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients int
}

// NewStatusHandler creates a new StatusHandler. interval is the websocket push period.
func NewStatusHandler(c ClockView, s ScheduleView, r RingView, interval time.Duration) *StatusHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &StatusHandler{
		clock:    c,
		schedule: s,
		ringer:   r,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *StatusHandler) snapshot() StatusResponse {
	resp := StatusResponse{Status: h.clock.Status()}
	if h.ringer != nil {
		resp.LastRing = h.ringer.Last()
		resp.Pending = h.ringer.Pending()
	}
	return resp
}

// HandleStatus returns the current clock and bell status.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot())
}

// HandleSchedule returns the active timetable and its bell times.
func (h *StatusHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	sch := h.schedule.Current()
	if sch == nil {
		http.Error(w, "No schedule loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{
		Schedule:   sch,
		Timestamps: h.schedule.Timestamps(),
	})
}

// Clients returns the number of connected websocket clients.
func (h *StatusHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

// HandleWebsocket upgrades the connection and pushes the status every interval
// until the client goes away.
func (h *StatusHandler) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients++
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.clients--
		h.mu.Unlock()
	}()
	slog.Debug("Status client connected", "remote", r.RemoteAddr)

	// The read side only watches for close frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		_ = conn.SetWriteDeadline(time.Now().Add(h.interval + 5*time.Second))
		if err := conn.WriteJSON(h.snapshot()); err != nil {
			slog.Debug("Status client gone", "remote", r.RemoteAddr, "error", err)
			return
		}

		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
