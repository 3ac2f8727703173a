package bell

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"zsembells/pkg/config"
	"zsembells/pkg/model"

	"github.com/stretchr/testify/assert"
)

type fakeRelays struct {
	mu     sync.Mutex
	ready  bool
	on     map[model.BellKind]bool
	events []string
	failOn string
}

func newFakeRelays() *fakeRelays {
	return &fakeRelays{ready: true, on: map[model.BellKind]bool{}}
}

func (f *fakeRelays) Ready() bool { return f.ready }

func (f *fakeRelays) Activate(kind model.BellKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "activate" {
		return errors.New("gpio write failed")
	}
	f.on[kind] = true
	f.events = append(f.events, "on:"+string(kind))
	return nil
}

func (f *fakeRelays) Release(kind model.BellKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on[kind] = false
	f.events = append(f.events, "off:"+string(kind))
	return nil
}

type fakePlayer struct {
	mu     sync.Mutex
	played []string
	volume float64
	err    error
	relays *fakeRelays
	onAt   []bool
}

func (p *fakePlayer) Play(ctx context.Context, path string, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, path)
	p.volume = volume
	if p.relays != nil {
		p.relays.mu.Lock()
		p.onAt = append(p.onAt, p.relays.on[model.BellWork] || p.relays.on[model.BellBreak])
		p.relays.mu.Unlock()
	}
	return p.err
}

type fakeRingStore struct {
	mu     sync.Mutex
	events []*model.RingEvent
}

func (s *fakeRingStore) RecordRing(_ context.Context, e *model.RingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *fakeRingStore) RecentRings(_ context.Context, limit int) ([]*model.RingEvent, error) {
	return nil, nil
}

func (s *fakeRingStore) RingsSince(_ context.Context, _ time.Time) ([]*model.RingEvent, error) {
	return nil, nil
}

func (s *fakeRingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type mapState map[string]string

func (m mapState) GetState(_ context.Context, key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}
func (m mapState) SetState(_ context.Context, key, val string) error { m[key] = val; return nil }
func (m mapState) DeleteState(_ context.Context, key string) error  { delete(m, key); return nil }

func testProvider(state mapState) config.Provider {
	cfg := config.DefaultConfig()
	cfg.Audio.SoundsDir = "/srv/sounds"
	cfg.Audio.Volume = 0.7
	cfg.Bell.MaxDuration = config.Duration(20 * time.Millisecond)
	return config.NewProvider(cfg, state)
}

func TestRinger_Ring(t *testing.T) {
	virtualNow := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		state     mapState
		kind      model.BellKind
		playErr   error
		relayFail bool
		check     func(*testing.T, *model.RingEvent, error, *fakeRelays, *fakePlayer)
	}{
		{
			name: "Work Bell With Sound",
			kind: model.BellWork,
			check: func(t *testing.T, ev *model.RingEvent, err error, r *fakeRelays, p *fakePlayer) {
				assert.NoError(t, err)
				assert.Equal(t, []string{"/srv/sounds/work.wav"}, p.played)
				assert.Equal(t, 0.7, p.volume)
				assert.Equal(t, []bool{true}, p.onAt, "relays must be on while the sound plays")
				assert.Equal(t, []string{"on:work", "off:work"}, r.events)
				assert.True(t, ev.Relays)
				assert.Equal(t, "work.wav", ev.Sound)
				assert.Equal(t, virtualNow, ev.At)
				assert.Empty(t, ev.Error)
			},
		},
		{
			name:  "Sounds Disabled Holds Bell",
			kind:  model.BellBreak,
			state: mapState{config.KeySoundsEnabled: "false"},
			check: func(t *testing.T, ev *model.RingEvent, err error, r *fakeRelays, p *fakePlayer) {
				assert.NoError(t, err)
				assert.Empty(t, p.played)
				assert.Equal(t, []string{"on:break", "off:break"}, r.events)
				assert.GreaterOrEqual(t, ev.Duration, 20*time.Millisecond)
				assert.Empty(t, ev.Sound)
			},
		},
		{
			name:  "Muted",
			kind:  model.BellWork,
			state: mapState{config.KeyBellsMuted: "true"},
			check: func(t *testing.T, ev *model.RingEvent, err error, r *fakeRelays, p *fakePlayer) {
				assert.ErrorIs(t, err, ErrMuted)
				assert.Empty(t, r.events)
				assert.Empty(t, p.played)
				assert.Equal(t, ErrMuted.Error(), ev.Error)
			},
		},
		{
			name:    "Sound Failure Still Releases",
			kind:    model.BellWork,
			playErr: errors.New("device busy"),
			check: func(t *testing.T, ev *model.RingEvent, err error, r *fakeRelays, p *fakePlayer) {
				assert.Error(t, err)
				assert.Equal(t, []string{"on:work", "off:work"}, r.events)
				assert.Contains(t, ev.Error, "device busy")
			},
		},
		{
			name:      "Relay Failure Still Plays",
			kind:      model.BellWork,
			relayFail: true,
			check: func(t *testing.T, ev *model.RingEvent, err error, r *fakeRelays, p *fakePlayer) {
				assert.Error(t, err)
				assert.Len(t, p.played, 1)
				assert.False(t, ev.Relays)
				assert.Empty(t, r.events)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.state == nil {
				tt.state = mapState{}
			}
			relays := newFakeRelays()
			if tt.relayFail {
				relays.failOn = "activate"
			}
			player := &fakePlayer{err: tt.playErr, relays: relays}
			st := &fakeRingStore{}

			r := NewRinger(testProvider(tt.state), relays, player, st, WithClock(func() time.Time { return virtualNow }))
			ev, err := r.Ring(context.Background(), tt.kind, model.SourceSchedule)

			if assert.NotNil(t, ev) {
				assert.NotEmpty(t, ev.ID)
				assert.Equal(t, tt.kind, ev.Kind)
				assert.Equal(t, model.SourceSchedule, ev.Source)
			}
			assert.Equal(t, 1, st.count(), "every ring is recorded")
			assert.Equal(t, ev, r.Last())

			tt.check(t, ev, err, relays, player)
		})
	}
}

func TestRinger_NoRelays(t *testing.T) {
	player := &fakePlayer{}
	r := NewRinger(testProvider(mapState{}), nil, player, nil)

	ev, err := r.Ring(context.Background(), model.BellBreak, model.SourceManual)
	assert.NoError(t, err)
	assert.False(t, ev.Relays)
	assert.Equal(t, []string{"/srv/sounds/break.wav"}, player.played)
}

func TestRinger_Run(t *testing.T) {
	st := &fakeRingStore{}
	var (
		mu   sync.Mutex
		rung []*model.RingEvent
	)
	r := NewRinger(testProvider(mapState{}), newFakeRelays(), &fakePlayer{}, st,
		WithOnRung(func(_ context.Context, ev *model.RingEvent) {
			mu.Lock()
			rung = append(rung, ev)
			mu.Unlock()
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.True(t, r.Enqueue(model.BellWork, model.SourceSchedule))
	assert.True(t, r.Enqueue(model.BellBreak, model.SourceManual))

	assert.Eventually(t, func() bool { return st.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, rung, 2)
}

func TestQueue(t *testing.T) {
	q := NewQueue(2)

	assert.True(t, q.Enqueue(&Request{Kind: model.BellWork, Source: model.SourceManual}, false))
	assert.False(t, q.Enqueue(&Request{Kind: model.BellWork, Source: model.SourceManual}, false), "duplicate manual ring")
	assert.True(t, q.Enqueue(&Request{Kind: model.BellBreak, Source: model.SourceManual}, false))
	assert.False(t, q.Enqueue(&Request{Kind: model.BellBreak, Source: model.SourceManual}, false), "queue full")
	assert.Equal(t, 2, q.Count())

	// Priority bypasses the limit and jumps ahead
	assert.True(t, q.Enqueue(&Request{Kind: model.BellBreak, Source: model.SourceSchedule}, true))
	assert.Equal(t, model.SourceSchedule, q.Peek().Source)
	assert.Equal(t, 3, q.Count())

	assert.Equal(t, model.SourceSchedule, q.Pop().Source)
	assert.Equal(t, model.BellWork, q.Pop().Kind)

	q.Clear()
	assert.Nil(t, q.Pop())
	assert.Nil(t, q.Peek())
}

func TestQueue_PriorityKeepsScheduleOrder(t *testing.T) {
	q := NewQueue(4)

	assert.True(t, q.Enqueue(&Request{Kind: model.BellWork, Source: model.SourceManual}, false))
	assert.True(t, q.Enqueue(&Request{Kind: model.BellBreak, Source: model.SourceSchedule}, true))
	assert.True(t, q.Enqueue(&Request{Kind: model.BellWork, Source: model.SourceSchedule}, true))
	assert.True(t, q.Enqueue(&Request{Kind: model.BellBreak, Source: model.SourceManual}, false))

	want := []struct {
		kind   model.BellKind
		source model.RingSource
	}{
		{model.BellBreak, model.SourceSchedule},
		{model.BellWork, model.SourceSchedule},
		{model.BellWork, model.SourceManual},
		{model.BellBreak, model.SourceManual},
	}
	for i, w := range want {
		r := q.Pop()
		if assert.NotNil(t, r, "pop %d", i) {
			assert.Equal(t, w.kind, r.Kind, "pop %d", i)
			assert.Equal(t, w.source, r.Source, "pop %d", i)
		}
	}
	assert.Nil(t, q.Pop())
}
