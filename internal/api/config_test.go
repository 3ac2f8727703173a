package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"zsembells/pkg/config"

	"github.com/stretchr/testify/assert"
)

type mockStore struct {
	state  map[string]string
	setErr error
}

func (m *mockStore) GetState(ctx context.Context, key string) (string, bool) {
	val, ok := m.state[key]
	return val, ok
}

func (m *mockStore) SetState(ctx context.Context, key, val string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.state == nil {
		m.state = make(map[string]string)
	}
	m.state[key] = val
	return nil
}

func (m *mockStore) DeleteState(ctx context.Context, key string) error {
	delete(m.state, key)
	return nil
}

func newConfigHandler(st *mockStore) *ConfigHandler {
	cfg := config.DefaultConfig()
	cfg.Audio.Volume = 0.8
	return NewConfigHandler(st, config.NewProvider(cfg, st))
}

func TestHandleGetConfig(t *testing.T) {
	tests := []struct {
		name       string
		storeState map[string]string
		want       ConfigResponse
	}{
		{
			name:       "Defaults",
			storeState: map[string]string{},
			want: ConfigResponse{
				BellsMuted:    false,
				SoundsEnabled: true,
				Volume:        0.8,
				SyncAfterRing: false,
				AudioBackend:  "aplay",
				GPIOEnabled:   false,
				ScheduleURL:   "https://zsem.edu.pl/plany/plany",
			},
		},
		{
			name: "Store Overrides",
			storeState: map[string]string{
				config.KeyBellsMuted:    "true",
				config.KeySoundsEnabled: "false",
				config.KeyVolume:        "0.25",
				config.KeySyncAfterRing: "true",
			},
			want: ConfigResponse{
				BellsMuted:    true,
				SoundsEnabled: false,
				Volume:        0.25,
				SyncAfterRing: true,
				AudioBackend:  "aplay",
				GPIOEnabled:   false,
				ScheduleURL:   "https://zsem.edu.pl/plany/plany",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newConfigHandler(&mockStore{state: tt.storeState})

			req := httptest.NewRequest(http.MethodGet, "/api/config", http.NoBody)
			rec := httptest.NewRecorder()
			h.HandleConfig(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var got ConfigResponse
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleSetConfig(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		setErr    error
		wantCode  int
		wantState map[string]string
	}{
		{
			name:     "Mute Bells",
			body:     `{"bells_muted": true}`,
			wantCode: http.StatusOK,
			wantState: map[string]string{
				config.KeyBellsMuted: "true",
			},
		},
		{
			name:     "Explicit False Is Stored",
			body:     `{"sounds_enabled": false, "sync_after_ring": false}`,
			wantCode: http.StatusOK,
			wantState: map[string]string{
				config.KeySoundsEnabled: "false",
				config.KeySyncAfterRing: "false",
			},
		},
		{
			name:     "Volume",
			body:     `{"volume": 0.5}`,
			wantCode: http.StatusOK,
			wantState: map[string]string{
				config.KeyVolume: "0.50",
			},
		},
		{
			name:      "Volume Out Of Range",
			body:      `{"volume": 1.5}`,
			wantCode:  http.StatusBadRequest,
			wantState: map[string]string{},
		},
		{
			name:      "Invalid JSON",
			body:      `{"volume":`,
			wantCode:  http.StatusBadRequest,
			wantState: map[string]string{},
		},
		{
			name:      "Store Failure",
			body:      `{"bells_muted": true}`,
			setErr:    errors.New("disk full"),
			wantCode:  http.StatusInternalServerError,
			wantState: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &mockStore{state: map[string]string{}, setErr: tt.setErr}
			h := newConfigHandler(st)

			req := httptest.NewRequest(http.MethodPut, "/api/config", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			h.HandleConfig(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantState, st.state)
		})
	}
}

func TestHandleSetConfig_ReturnsUpdatedConfig(t *testing.T) {
	h := newConfigHandler(&mockStore{state: map[string]string{}})

	req := httptest.NewRequest(http.MethodPut, "/api/config", bytes.NewBufferString(`{"bells_muted": true, "volume": 0.3}`))
	rec := httptest.NewRecorder()
	h.HandleConfig(rec, req)

	var got ConfigResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.BellsMuted)
	assert.InDelta(t, 0.3, got.Volume, 1e-9)
}

func TestHandleConfig_Methods(t *testing.T) {
	h := newConfigHandler(&mockStore{})

	rec := httptest.NewRecorder()
	h.HandleConfig(rec, httptest.NewRequest(http.MethodOptions, "/api/config", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.HandleConfig(rec, httptest.NewRequest(http.MethodDelete, "/api/config", http.NoBody))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
