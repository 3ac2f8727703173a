package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"zsembells/pkg/config"
	"zsembells/pkg/store"
)

// ConfigHandler handles configuration API requests.
type ConfigHandler struct {
	store   store.StateStore
	cfgProv config.Provider
	appCfg  *config.Config
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(st store.StateStore, cfg config.Provider) *ConfigHandler {
	return &ConfigHandler{
		store:   st,
		cfgProv: cfg,
		appCfg:  cfg.AppConfig(),
	}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	BellsMuted    bool    `json:"bells_muted"`
	SoundsEnabled bool    `json:"sounds_enabled"`
	Volume        float64 `json:"volume"`
	SyncAfterRing bool    `json:"sync_after_ring"`
	AudioBackend  string  `json:"audio_backend"`
	GPIOEnabled   bool    `json:"gpio_enabled"`
	ScheduleURL   string  `json:"schedule_url"`
}

// ConfigRequest represents the config API request for updates.
// Pointers tell a false or zero value apart from a missing one.
type ConfigRequest struct {
	BellsMuted    *bool    `json:"bells_muted,omitempty"`
	SoundsEnabled *bool    `json:"sounds_enabled,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
	SyncAfterRing *bool    `json:"sync_after_ring,omitempty"`
}

var errInvalidVolume = errors.New("volume must be within [0, 1]")

// HandleConfig is a unified handler for all config-related methods, facilitating CORS/OPTIONS.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGetConfig(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetConfig returns the current configuration.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.getConfigResponse(r.Context()))
}

func (h *ConfigHandler) getConfigResponse(ctx context.Context) ConfigResponse {
	return ConfigResponse{
		BellsMuted:    h.cfgProv.BellsMuted(ctx),
		SoundsEnabled: h.cfgProv.SoundsEnabled(ctx),
		Volume:        h.cfgProv.Volume(ctx),
		SyncAfterRing: h.cfgProv.SyncAfterRing(ctx),
		AudioBackend:  h.appCfg.Audio.Backend,
		GPIOEnabled:   h.appCfg.GPIO.Enabled,
		ScheduleURL:   h.appCfg.Schedule.URL,
	}
}

// HandleSetConfig updates the runtime settings and returns the new configuration.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req ConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Volume != nil && (*req.Volume < 0 || *req.Volume > 1) {
		http.Error(w, errInvalidVolume.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.applyUpdates(ctx, &req); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.HandleGetConfig(w, r)
}

func (h *ConfigHandler) applyUpdates(ctx context.Context, req *ConfigRequest) error {
	var errs []error
	if req.BellsMuted != nil {
		errs = append(errs, h.updateState(ctx, config.KeyBellsMuted, strconv.FormatBool(*req.BellsMuted)))
	}
	if req.SoundsEnabled != nil {
		errs = append(errs, h.updateState(ctx, config.KeySoundsEnabled, strconv.FormatBool(*req.SoundsEnabled)))
	}
	if req.Volume != nil {
		errs = append(errs, h.updateState(ctx, config.KeyVolume, strconv.FormatFloat(*req.Volume, 'f', 2, 64)))
	}
	if req.SyncAfterRing != nil {
		errs = append(errs, h.updateState(ctx, config.KeySyncAfterRing, strconv.FormatBool(*req.SyncAfterRing)))
	}
	return errors.Join(errs...)
}

func (h *ConfigHandler) updateState(ctx context.Context, key, val string) error {
	if err := h.store.SetState(ctx, key, val); err != nil {
		slog.Error("Failed to save state", "key", key, "error", err)
		return err
	}
	slog.Info("Config updated", key, val)
	return nil
}
