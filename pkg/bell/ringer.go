// Package bell rings the school bells: relays, sound and the ring history.
package bell

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"zsembells/pkg/audio"
	"zsembells/pkg/config"
	"zsembells/pkg/logging"
	"zsembells/pkg/model"
	"zsembells/pkg/store"

	"github.com/google/uuid"
)

// ErrMuted is recorded for rings skipped because bells are muted.
var ErrMuted = errors.New("bells muted")

// Relays switches the bell circuits.
type Relays interface {
	Ready() bool
	Activate(kind model.BellKind) error
	Release(kind model.BellKind) error
}

// RungFunc is called by the queue worker after each completed ring.
type RungFunc func(ctx context.Context, ev *model.RingEvent)

// Ringer performs rings one at a time.
type Ringer struct {
	prov   config.Provider
	relays Relays
	player audio.Player
	store  store.RingStore
	queue  *Queue
	now    func() time.Time
	onRung RungFunc

	mu   sync.Mutex // held for the whole ring
	wake chan struct{}
	last atomic.Pointer[model.RingEvent]
}

// Option configures a Ringer.
type Option func(*Ringer)

// WithClock sets the time source used to stamp ring events.
func WithClock(now func() time.Time) Option {
	return func(r *Ringer) { r.now = now }
}

// WithOnRung registers a callback run after each queued ring.
func WithOnRung(fn RungFunc) Option {
	return func(r *Ringer) { r.onRung = fn }
}

// NewRinger creates a Ringer. relays and player may be nil.
func NewRinger(prov config.Provider, relays Relays, player audio.Player, st store.RingStore, opts ...Option) *Ringer {
	r := &Ringer{
		prov:   prov,
		relays: relays,
		player: player,
		store:  st,
		queue:  NewQueue(prov.AppConfig().Bell.QueueSize),
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enqueue schedules a ring on the worker started by Run.
// Scheduled rings take priority over manual ones.
func (r *Ringer) Enqueue(kind model.BellKind, source model.RingSource) bool {
	ok := r.queue.Enqueue(&Request{Kind: kind, Source: source, Queued: time.Now()}, source == model.SourceSchedule)
	if ok {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
	return ok
}

// Pending returns the number of queued rings.
func (r *Ringer) Pending() int {
	return r.queue.Count()
}

// Last returns the most recent ring, or nil.
func (r *Ringer) Last() *model.RingEvent {
	return r.last.Load()
}

// Run processes queued rings until ctx is done.
func (r *Ringer) Run(ctx context.Context) error {
	for {
		for req := r.queue.Pop(); req != nil; req = r.queue.Pop() {
			ev, _ := r.Ring(ctx, req.Kind, req.Source)
			if r.onRung != nil {
				r.onRung(ctx, ev)
			}
			if ctx.Err() != nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-r.wake:
		}
	}
}

// Ring switches the relays on, plays the sound for kind (or holds the relays for
// the configured bell duration when sounds are off) and switches the relays off.
// The ring is recorded even when it fails.
func (r *Ringer) Ring(ctx context.Context, kind model.BellKind, source model.RingSource) (*model.RingEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev := &model.RingEvent{
		ID:     uuid.NewString(),
		Kind:   kind,
		Source: source,
		At:     r.now(),
	}
	slog.Info("Bell triggered", "kind", kind, "source", source)

	var err error
	if r.prov.BellsMuted(ctx) {
		slog.Warn("Bells are muted, skipping ring", "kind", kind)
		err = ErrMuted
	} else {
		err = r.ring(ctx, ev)
	}

	if err != nil {
		ev.Error = err.Error()
		if !errors.Is(err, ErrMuted) {
			slog.Error("Ring failed", "kind", kind, "error", err)
		}
	}
	r.record(ctx, ev)

	slog.Info("Ring finished", "kind", kind, "duration", ev.Duration.Round(time.Millisecond))
	return ev, err
}

func (r *Ringer) ring(ctx context.Context, ev *model.RingEvent) error {
	start := time.Now()
	defer func() { ev.Duration = time.Since(start) }()

	var errs []error

	if r.relays != nil && r.relays.Ready() {
		if err := r.relays.Activate(ev.Kind); err != nil {
			errs = append(errs, err)
		} else {
			ev.Relays = true
		}
	}

	errs = append(errs, r.sound(ctx, ev))

	if ev.Relays {
		// Switched off regardless of ctx so the bell never stays on.
		errs = append(errs, r.relays.Release(ev.Kind))
	}
	return errors.Join(errs...)
}

func (r *Ringer) sound(ctx context.Context, ev *model.RingEvent) error {
	cfg := r.prov.AppConfig()

	if r.player != nil && r.prov.SoundsEnabled(ctx) {
		path := audio.SoundFor(&cfg.Audio, ev.Kind)
		ev.Sound = filepath.Base(path)
		return r.player.Play(ctx, path, r.prov.Volume(ctx))
	}

	d := time.Duration(cfg.Bell.MaxDuration)
	slog.Debug("Sounds disabled, holding bell", "duration", d)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Ringer) record(ctx context.Context, ev *model.RingEvent) {
	r.last.Store(ev)
	logging.LogRing(ev)

	if r.store == nil {
		return
	}
	if err := r.store.RecordRing(context.WithoutCancel(ctx), ev); err != nil {
		slog.Error("Failed to record ring", "id", ev.ID, "error", err)
	}
}
