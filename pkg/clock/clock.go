// Package clock implements the virtual clock that drives the bells.
//
// The clock holds its own time, synced from a time API or the system clock,
// and advances it by exactly one second per tick so that no second, and
// therefore no bell, is ever skipped even when ticks arrive late.
package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/text/message"

	"zsembells/pkg/config"
	"zsembells/pkg/i18n"
	"zsembells/pkg/logging"
	"zsembells/pkg/model"
)

// Callback is invoked when a timestamp is reached.
type Callback func(ctx context.Context)

// Getter fetches a URL body. Satisfied by request.Client.
type Getter interface {
	Get(ctx context.Context, u string) ([]byte, error)
}

type timestampCallback struct {
	timestamps []config.TimeOfDay
	fn         Callback
}

// Clock is the virtual clock.
type Clock struct {
	cfg     *config.ClockConfig
	getter  Getter
	printer *message.Printer

	tickInterval time.Duration

	mu         sync.Mutex
	now        time.Time
	timestamps []config.TimeOfDay
	extras     []timestampCallback
	onWork     Callback
	onBreak    Callback
	onNeutral  func()
	running    bool
	stop       chan struct{}
	repetition int

	inflight sync.WaitGroup
}

// Option configures a Clock.
type Option func(*Clock)

// WithTickInterval overrides the one second tick. The clock still advances
// one virtual second per tick.
func WithTickInterval(d time.Duration) Option {
	return func(c *Clock) { c.tickInterval = d }
}

// WithPrinter sets the printer used for the status table.
func WithPrinter(p *message.Printer) Option {
	return func(c *Clock) { c.printer = p }
}

// New creates a new Clock.
func New(cfg *config.ClockConfig, g Getter, opts ...Option) *Clock {
	c := &Clock{
		cfg:          cfg,
		getter:       g,
		tickInterval: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	if c.printer == nil {
		en, _ := i18n.Resolve("en")
		c.printer = i18n.Printer(en)
	}
	return c
}

type timeAPIResponse struct {
	Datetime string `json:"datetime"`
}

// Sync sets the virtual time from the time API, or from the system clock when
// syncing is disabled or the API fails.
func (c *Clock) Sync(ctx context.Context) time.Time {
	logging.Separator("Syncing Virtual Clock")

	if !c.cfg.SyncEnabled {
		slog.Warn("Syncing clock is disabled")
		return c.SetNow(time.Now())
	}

	t, err := c.fetchTime(ctx)
	if err != nil {
		now := c.SetNow(time.Now())
		slog.Error("Failed to sync time from API, using system time", "time", now.Format(time.DateTime), "error", err)
		return now
	}

	slog.Info("Synced time from API", "time", t.Format(time.RFC3339))
	return c.SetNow(t)
}

func (c *Clock) fetchTime(ctx context.Context) (time.Time, error) {
	body, err := c.getter.Get(ctx, c.cfg.TimeAPIURL)
	if err != nil {
		return time.Time{}, err
	}
	var resp timeAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode time API response: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, resp.Datetime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: %w", resp.Datetime, err)
	}
	return t, nil
}

// SetNow sets the virtual time, truncated to whole seconds.
func (c *Clock) SetNow(t time.Time) time.Time {
	t = t.Truncate(time.Second)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
	return t
}

// Now returns the virtual time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// SetTimestamps replaces the bell timestamps. Even indexes ring the break bell,
// odd indexes ring the work bell.
func (c *Clock) SetTimestamps(ts []config.TimeOfDay) {
	cp := make([]config.TimeOfDay, len(ts))
	copy(cp, ts)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timestamps = cp
}

// Timestamps returns a copy of the bell timestamps.
func (c *Clock) Timestamps() []config.TimeOfDay {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]config.TimeOfDay, len(c.timestamps))
	copy(cp, c.timestamps)
	return cp
}

// SetBellCallbacks registers the bell callbacks. neutral may be nil; it runs
// synchronously before the work or break callback.
func (c *Clock) SetBellCallbacks(onWork, onBreak Callback, neutral func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWork = onWork
	c.onBreak = onBreak
	c.onNeutral = neutral
}

// AddTimestampCallback registers fn to run at each of the given times of day.
func (c *Clock) AddTimestampCallback(ts []config.TimeOfDay, fn Callback) {
	cp := make([]config.TimeOfDay, len(ts))
	copy(cp, ts)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extras = append(c.extras, timestampCallback{timestamps: cp, fn: fn})
}

// Running reports whether the tick loop is active.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start runs the tick loop until ctx is done or Stop is called.
// Calling Start on a running clock logs a warning and returns immediately.
func (c *Clock) Start(ctx context.Context) error {
	logging.Separator("Starting Virtual Clock")

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		slog.Warn("Virtual clock is already running")
		return nil
	}
	c.running = true
	c.stop = make(chan struct{})
	stop := c.stop
	needSync := c.now.IsZero()
	c.mu.Unlock()

	slog.Info("Starting virtual clock")
	if needSync {
		c.Sync(ctx)
	}
	c.LogStatus()

	ticker := time.NewTicker(c.tickInterval)
	defer func() {
		ticker.Stop()
		c.inflight.Wait()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			return nil
		case <-ticker.C:
			c.advance(ctx)
		}
	}
}

// Stop ends the tick loop.
func (c *Clock) Stop() {
	logging.Separator("Stopping Virtual Clock")

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.stop == nil {
		slog.Warn("Virtual clock is already not running")
		return
	}
	slog.Info("Stopping virtual clock")
	close(c.stop)
	c.stop = nil
}

// advance moves the virtual time one second forward and fires due callbacks.
// The neutral callback runs before the bell callbacks are started.
func (c *Clock) advance(ctx context.Context) {
	type pending struct {
		name string
		fn   Callback
	}

	c.mu.Lock()
	c.now = c.now.Add(time.Second)
	sod := config.TimeOfDayOf(c.now)

	var neutral []func()
	var bells, others []pending
	for i, ts := range c.timestamps {
		if ts != sod {
			continue
		}
		if c.onNeutral != nil {
			neutral = append(neutral, c.onNeutral)
		}
		kind := KindAt(i)
		cb := c.onBreak
		if kind == model.BellWork {
			cb = c.onWork
		}
		if cb != nil {
			bells = append(bells, pending{name: "bell:" + string(kind), fn: cb})
		}
	}
	for _, e := range c.extras {
		for _, ts := range e.timestamps {
			if ts == sod {
				others = append(others, pending{name: "timestamp:" + ts.String(), fn: e.fn})
			}
		}
	}

	announce := c.cfg.VerboseDebug
	if !announce {
		if c.repetition >= c.cfg.AnnounceInterval {
			announce = true
			c.repetition = 0
		}
		c.repetition++
	}
	c.mu.Unlock()

	for _, fn := range neutral {
		fn()
	}
	for _, p := range append(bells, others...) {
		c.spawn(ctx, p.name, p.fn)
	}
	if announce {
		c.LogStatus()
	}
}

// spawn runs fn in its own goroutine. Panics are recovered and logged.
func (c *Clock) spawn(ctx context.Context, name string, fn Callback) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Clock callback panicked", "callback", name, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn(ctx)
	}()
}

// KindAt maps a timestamp index to its bell kind: even indexes ring the
// break bell, odd indexes the work bell.
func KindAt(index int) model.BellKind {
	if index%2 == 0 {
		return model.BellBreak
	}
	return model.BellWork
}
