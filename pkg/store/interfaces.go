package store

import (
	"context"
	"time"

	"zsembells/pkg/model"
)

// ScheduleStore persists scraped timetables.
type ScheduleStore interface {
	SaveSchedule(ctx context.Context, s *model.Schedule) error
	// LatestSchedule returns the most recently saved schedule, or nil if none exists.
	LatestSchedule(ctx context.Context) (*model.Schedule, error)
}

// RingStore persists the ring history.
type RingStore interface {
	RecordRing(ctx context.Context, e *model.RingEvent) error
	RecentRings(ctx context.Context, limit int) ([]*model.RingEvent, error)
	RingsSince(ctx context.Context, since time.Time) ([]*model.RingEvent, error)
}

// StateStore handles persistent key-value state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
