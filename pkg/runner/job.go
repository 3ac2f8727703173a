package runner

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/text/message"

	"zsembells/pkg/clock"
	"zsembells/pkg/i18n"
	"zsembells/pkg/logging"
	"zsembells/pkg/schedule"
)

// baseJob provides atomic running state to prevent re-entry.
type baseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func (b *baseJob) Name() string {
	return b.name
}

// TryLock attempts to set running to 1. Returns true if successful.
func (b *baseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *baseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

// updateJob refreshes the schedule, re-syncs the clock and reloads the bell times.
// It runs once at startup and again at every sync timestamp.
type updateJob struct {
	baseJob
	keeper  *schedule.Keeper
	clock   *clock.Clock
	printer *message.Printer
}

func newUpdateJob(k *schedule.Keeper, c *clock.Clock, p *message.Printer) *updateJob {
	return &updateJob{
		baseJob: baseJob{name: "ScheduleUpdate"},
		keeper:  k,
		clock:   c,
		printer: p,
	}
}

// Run performs the update. Overlapping runs are skipped.
func (j *updateJob) Run(ctx context.Context) {
	if !j.TryLock() {
		slog.Warn("Update already running, skipping", "job", j.Name())
		return
	}
	defer j.Unlock()

	sch, err := j.keeper.Sync(ctx)
	if err != nil {
		// The previous schedule (if any) stays active
		slog.Error("Failed to sync schedule", "error", err)
	} else {
		p := j.printer
		logging.Separator(p.Sprintf(i18n.MsgSchedule))
		logging.LogTable(
			[]string{p.Sprintf(i18n.MsgLesson), p.Sprintf(i18n.MsgStart), p.Sprintf(i18n.MsgEnd)},
			schedule.Rows(sch),
		)
	}

	j.clock.Sync(ctx)
	j.clock.SetTimestamps(j.keeper.Timestamps())
}
