package clock

import (
	"time"

	"zsembells/pkg/config"
	"zsembells/pkg/i18n"
	"zsembells/pkg/logging"
	"zsembells/pkg/model"
)

// BellInfo describes one bell relative to the current virtual time.
type BellInfo struct {
	At    config.TimeOfDay `json:"at"`
	Index int              `json:"index"`
	Kind  model.BellKind   `json:"kind"`
	Delta time.Duration    `json:"delta"` // always positive
}

// Status is a snapshot of the clock state.
type Status struct {
	Now      time.Time `json:"now"`
	Running  bool      `json:"running"`
	Next     *BellInfo `json:"next,omitempty"`
	Previous *BellInfo `json:"previous,omitempty"`
}

// Status returns the next and previous bells. With no later bell today the
// first bell of the day is next; with no earlier bell the last one is previous.
func (c *Clock) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{Now: c.now, Running: c.running}
	if c.now.IsZero() {
		return st
	}
	sod := config.TimeOfDayOf(c.now)
	st.Next = adjacent(c.timestamps, sod, true)
	st.Previous = adjacent(c.timestamps, sod, false)
	return st
}

// adjacent finds the closest timestamp strictly after sod (next) or at or
// before sod (previous), wrapping around midnight.
func adjacent(ts []config.TimeOfDay, sod config.TimeOfDay, next bool) *BellInfo {
	if len(ts) == 0 {
		return nil
	}

	best := -1
	bestDelta := config.SecondsPerDay + 1
	for i, t := range ts {
		var d int
		if next {
			d = wrap(t.Seconds() - sod.Seconds())
			if d == 0 {
				d = config.SecondsPerDay
			}
		} else {
			d = wrap(sod.Seconds() - t.Seconds())
		}
		// Ties go to the later index so a repeated time resolves like the schedule order
		if d < bestDelta || (d == bestDelta && i > best) {
			best, bestDelta = i, d
		}
	}

	return &BellInfo{
		At:    ts[best],
		Index: best,
		Kind:  KindAt(best),
		Delta: time.Duration(bestDelta) * time.Second,
	}
}

func wrap(s int) int {
	return ((s % config.SecondsPerDay) + config.SecondsPerDay) % config.SecondsPerDay
}

// StatusRows renders the status as table rows.
func (c *Clock) StatusRows(st Status) (headers []string, rows [][]string) {
	p := c.printer
	headers = []string{"", p.Sprintf(i18n.MsgTime), p.Sprintf(i18n.MsgKind), p.Sprintf(i18n.MsgDelta)}

	bellRow := func(label string, b *BellInfo, deltaFmt string) []string {
		if b == nil {
			return []string{p.Sprintf(label), "-", "-", "-"}
		}
		return []string{
			p.Sprintf(label),
			b.At.String(),
			p.Sprintf(string(b.Kind)),
			p.Sprintf(deltaFmt, b.Delta.String()),
		}
	}

	rows = [][]string{
		bellRow(i18n.MsgNextBell, st.Next, i18n.MsgIn),
		bellRow(i18n.MsgPreviousBell, st.Previous, i18n.MsgAgo),
		{p.Sprintf(i18n.MsgNow), st.Now.Format(time.DateTime), "", ""},
	}
	return headers, rows
}

// LogStatus writes the status table.
func (c *Clock) LogStatus() {
	headers, rows := c.StatusRows(c.Status())
	logging.LogTable(headers, rows)
}
