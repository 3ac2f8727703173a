package api

import (
	"net/http"
	"runtime"
	"time"

	"zsembells/pkg/tracker"

	"github.com/dustin/go-humanize"
)

// StatsHandler reports outbound request statistics and process diagnostics.
type StatsHandler struct {
	tracker *tracker.Tracker
	started time.Time
	now     func() time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		started: time.Now(),
		now:     time.Now,
	}
}

type ProviderStatsDTO struct {
	APISuccess  int64  `json:"api_success"`
	APIFailures int64  `json:"api_errors"`
	BadStatus   int64  `json:"bad_status"`
	Retries     int64  `json:"retries"`
	SuccessRate int64  `json:"success_rate"`
	LastSeen    string `json:"last_seen,omitempty"`
}

type Diagnostics struct {
	Uptime     string `json:"uptime"`
	Memory     string `json:"memory"`
	MemorySys  string `json:"memory_sys"`
	Goroutines int    `json:"goroutines"`
}

type StatsResponse struct {
	Diagnostics Diagnostics                 `json:"diagnostics"`
	Providers   map[string]ProviderStatsDTO `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := StatsResponse{
		Diagnostics: Diagnostics{
			Uptime:     h.now().Sub(h.started).Round(time.Second).String(),
			Memory:     humanize.Bytes(mem.Alloc),
			MemorySys:  humanize.Bytes(mem.Sys),
			Goroutines: runtime.NumGoroutine(),
		},
		Providers: make(map[string]ProviderStatsDTO),
	}

	for provider, stats := range h.tracker.Snapshot() {
		total := stats.APISuccess + stats.APIFailures + stats.BadStatus
		rate := int64(0)
		if total > 0 {
			rate = (stats.APISuccess * 100) / total
		}
		dto := ProviderStatsDTO{
			APISuccess:  stats.APISuccess,
			APIFailures: stats.APIFailures,
			BadStatus:   stats.BadStatus,
			Retries:     stats.Retries,
			SuccessRate: rate,
		}
		if !stats.LastSeen.IsZero() {
			dto.LastSeen = humanize.RelTime(stats.LastSeen, h.now(), "ago", "from now")
		}
		resp.Providers[provider] = dto
	}

	writeJSON(w, http.StatusOK, resp)
}
