package logging

import (
	"testing"
	"time"

	"zsembells/pkg/model"
)

func TestLineCapture(t *testing.T) {
	c := &LineCapture{}
	if c.Last() != "" {
		t.Errorf("empty capture = %q", c.Last())
	}
	_, _ = c.Write([]byte("first\n"))
	_, _ = c.Write([]byte("second\n"))
	if c.Last() != "second" {
		t.Errorf("Last() = %q, want %q", c.Last(), "second")
	}
}

func TestRingCapture_KeepsLastPerKind(t *testing.T) {
	c := &RingCapture{}
	at := time.Date(2023, 9, 29, 8, 0, 0, 0, time.UTC)

	c.Record(&model.RingEvent{ID: "a", Kind: model.BellBreak, Source: model.SourceSchedule, At: at})
	c.Record(&model.RingEvent{ID: "b", Kind: model.BellWork, Source: model.SourceSchedule, At: at.Add(45 * time.Minute)})
	line := c.Record(&model.RingEvent{ID: "c", Kind: model.BellBreak, Source: model.SourceManual, At: at.Add(50 * time.Minute)})

	if want := "[2023-09-29 08:50:00] [break/manual] 0.0s id=c"; line != want || c.Last() != want {
		t.Errorf("Record() = %q, Last() = %q, want %q", line, c.Last(), want)
	}
	if got := c.LastFor(model.BellWork); got != "[2023-09-29 08:45:00] [work/schedule] 0.0s id=b" {
		t.Errorf("LastFor(work) = %q", got)
	}
	if got := c.ByKind(); len(got) != 2 || got["break"] != c.Last() {
		t.Errorf("ByKind() = %v", got)
	}

	c.Reset()
	if c.Last() != "" || len(c.ByKind()) != 0 {
		t.Error("Reset() left lines behind")
	}
}
