package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"zsembells/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, status *StatusHandler, rings *RingHandler, cfg *ConfigHandler, stats *StatsHandler, shutdown func()) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewMux(status, rings, cfg, stats, shutdown),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers all routes. Nil handlers leave their routes out.
func NewMux(status *StatusHandler, rings *RingHandler, cfg *ConfigHandler, stats *StatsHandler, shutdown func()) *http.ServeMux {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Status Endpoints
	if status != nil {
		mux.HandleFunc("GET /api/status", status.HandleStatus)
		mux.HandleFunc("GET /api/schedule", status.HandleSchedule)
		mux.HandleFunc("GET /ws/status", status.HandleWebsocket)
	}

	// 4. Ring Endpoints
	if rings != nil {
		mux.HandleFunc("GET /api/rings", rings.HandleList)
		mux.HandleFunc("POST /api/ring/{kind}", rings.HandleRing)
	}

	// 5. Config Endpoints
	if cfg != nil {
		mux.HandleFunc("/api/config", cfg.HandleConfig)
	}

	// 6. Stats Endpoint
	if stats != nil {
		mux.Handle("GET /api/stats", stats)
	}

	// 7. Logs Endpoint
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 8. Shutdown Endpoint
	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// Call shutdown in a goroutine to allow response to flush
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": %q, "repo": %q}`, version.Version, version.RepoURL); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
