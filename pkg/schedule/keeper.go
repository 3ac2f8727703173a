package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"zsembells/pkg/config"
	"zsembells/pkg/logging"
	"zsembells/pkg/model"
	"zsembells/pkg/store"
)

// ErrNoSchedule is returned when no schedule could be scraped or loaded.
var ErrNoSchedule = errors.New("no schedule available")

// Keeper owns the current schedule: it scrapes fresh data when possible
// and falls back to the last persisted snapshot.
type Keeper struct {
	cfg     *config.ScheduleConfig
	fetcher Fetcher
	scanner *Scanner
	store   store.ScheduleStore

	mu      sync.RWMutex
	current *model.Schedule
}

// NewKeeper creates a new Keeper.
func NewKeeper(cfg *config.ScheduleConfig, f Fetcher, st store.ScheduleStore) *Keeper {
	return &Keeper{
		cfg:     cfg,
		fetcher: f,
		scanner: NewScanner(cfg, f),
		store:   st,
	}
}

// Sync refreshes the schedule and returns it.
func (k *Keeper) Sync(ctx context.Context) (*model.Schedule, error) {
	logging.Separator("Syncing Schedule")

	switch {
	case !k.cfg.SyncEnabled:
		slog.Warn("Syncing schedule is disabled")
	case !k.fetcher.Status(ctx, k.cfg.MainSite):
		slog.Error("Can't sync schedule, site is down, attempting to use the saved one", "site", k.cfg.MainSite)
	default:
		slog.Info("Trying to sync schedule", "url", k.cfg.URL)
		sch, err := k.scanner.Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("schedule scan failed: %w", err)
		}
		if len(sch.ValidBranches) > 0 {
			if err := k.store.SaveSchedule(ctx, sch); err != nil {
				slog.Error("Failed to save schedule", "error", err)
			}
			k.set(sch)
			return sch, nil
		}
		slog.Error("No valid branches found, attempting to use the saved schedule")
	}

	sch, err := k.store.LatestSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved schedule: %w", err)
	}
	if sch == nil {
		return nil, ErrNoSchedule
	}
	k.set(sch)
	return sch, nil
}

func (k *Keeper) set(sch *model.Schedule) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.current = sch
}

// Current returns the schedule from the last successful Sync, or nil.
func (k *Keeper) Current() *model.Schedule {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.current
}

// Timestamps returns every range endpoint of the current schedule, sorted.
// Endpoints that do not parse as a time of day are skipped.
func (k *Keeper) Timestamps() []config.TimeOfDay {
	return Timestamps(k.Current())
}

// Timestamps flattens a schedule into sorted times of day.
func Timestamps(sch *model.Schedule) []config.TimeOfDay {
	if sch == nil {
		return nil
	}
	out := make([]config.TimeOfDay, 0, len(sch.Ranges)*2)
	for _, r := range sch.Ranges {
		for _, v := range r {
			t, err := config.ParseTimeOfDay(v)
			if err != nil {
				slog.Error("Invalid timestamp in schedule", "value", v, "error", err)
				continue
			}
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rows renders the schedule as table rows: lesson number, start, end.
func Rows(sch *model.Schedule) [][]string {
	if sch == nil {
		return nil
	}
	rows := make([][]string, len(sch.Ranges))
	for i, r := range sch.Ranges {
		rows[i] = []string{fmt.Sprintf("%d", i+1), r[0], r[1]}
	}
	return rows
}
