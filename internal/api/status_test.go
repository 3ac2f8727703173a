package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"zsembells/pkg/clock"
	"zsembells/pkg/config"
	"zsembells/pkg/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

var virtualNow = time.Date(2024, 3, 4, 7, 55, 0, 0, time.UTC)

type fakeClock struct{}

func (fakeClock) Status() clock.Status {
	return clock.Status{
		Now:     virtualNow,
		Running: true,
		Next: &clock.BellInfo{
			At:    config.MustParseTimeOfDay("08:00"),
			Index: 0,
			Kind:  model.BellWork,
			Delta: 5 * time.Minute,
		},
	}
}

type fakeSchedule struct {
	sch *model.Schedule
}

func (f *fakeSchedule) Current() *model.Schedule { return f.sch }
func (f *fakeSchedule) Timestamps() []config.TimeOfDay {
	if f.sch == nil {
		return nil
	}
	return []config.TimeOfDay{config.MustParseTimeOfDay("08:00"), config.MustParseTimeOfDay("08:45")}
}

type fakeRinger struct {
	mu      sync.Mutex
	last    *model.RingEvent
	queued  []model.BellKind
	reject  bool
	sources []model.RingSource
}

func (f *fakeRinger) Last() *model.RingEvent { return f.last }
func (f *fakeRinger) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queued)
}
func (f *fakeRinger) Enqueue(kind model.BellKind, source model.RingSource) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return false
	}
	f.queued = append(f.queued, kind)
	f.sources = append(f.sources, source)
	return true
}

func TestHandleStatus(t *testing.T) {
	ringer := &fakeRinger{
		last:   &model.RingEvent{ID: "r1", Kind: model.BellBreak, Source: model.SourceSchedule, At: virtualNow.Add(-10 * time.Minute)},
		queued: []model.BellKind{model.BellWork},
	}
	h := NewStatusHandler(fakeClock{}, &fakeSchedule{}, ringer, time.Second)

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, true, raw["running"])
	assert.Equal(t, float64(1), raw["pending_rings"])
	if next, ok := raw["next"].(map[string]any); assert.True(t, ok) {
		assert.Equal(t, "08:00:00", next["at"])
		assert.Equal(t, "work", next["kind"])
	}
	if last, ok := raw["last_ring"].(map[string]any); assert.True(t, ok) {
		assert.Equal(t, "r1", last["id"])
	}
	assert.NotContains(t, raw, "previous")
}

func TestHandleSchedule(t *testing.T) {
	tests := []struct {
		name     string
		sch      *model.Schedule
		wantCode int
	}{
		{name: "No Schedule", wantCode: http.StatusNotFound},
		{
			name: "Loaded",
			sch: &model.Schedule{
				ValidBranches:  []int{1, 2},
				ScheduleBranch: 1,
				Ranges:         []model.HourRange{{"8:00", "8:45"}},
				FetchedAt:      virtualNow,
			},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStatusHandler(fakeClock{}, &fakeSchedule{sch: tt.sch}, nil, time.Second)

			rec := httptest.NewRecorder()
			h.HandleSchedule(rec, httptest.NewRequest(http.MethodGet, "/api/schedule", http.NoBody))
			assert.Equal(t, tt.wantCode, rec.Code)

			if tt.sch == nil {
				return
			}
			var raw map[string]any
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
			assert.Equal(t, float64(1), raw["schedule_branch"])
			assert.Equal(t, []any{[]any{"8:00", "8:45"}}, raw["schedule"])
			assert.Equal(t, []any{"08:00:00", "08:45:00"}, raw["timestamps"])
		})
	}
}

func TestHandleWebsocket(t *testing.T) {
	h := NewStatusHandler(fakeClock{}, &fakeSchedule{}, &fakeRinger{}, 20*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebsocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	// First push is immediate, the next ones follow the interval
	for i := 0; i < 3; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got StatusResponse
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		assert.True(t, got.Running)
		assert.True(t, got.Now.Equal(virtualNow))
		if assert.NotNil(t, got.Next) {
			assert.Equal(t, config.MustParseTimeOfDay("08:00"), got.Next.At)
		}
	}
	assert.Equal(t, 1, h.Clients())

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	assert.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
