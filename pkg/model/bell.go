package model

import (
	"time"
)

// BellKind identifies which bell circuit rings.
type BellKind string

const (
	BellWork  BellKind = "work"
	BellBreak BellKind = "break"
)

// ParseBellKind converts a user supplied string to a BellKind.
func ParseBellKind(s string) (BellKind, bool) {
	switch BellKind(s) {
	case BellWork:
		return BellWork, true
	case BellBreak:
		return BellBreak, true
	}
	return "", false
}

// RingSource describes what triggered a ring.
type RingSource string

const (
	SourceSchedule RingSource = "schedule"
	SourceManual   RingSource = "manual"
)

// RingEvent records one completed ring.
type RingEvent struct {
	ID       string        `json:"id"`
	Kind     BellKind      `json:"kind"`
	Source   RingSource    `json:"source"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
	Relays   bool          `json:"relays"` // relays were driven
	Sound    string        `json:"sound,omitempty"`
	Error    string        `json:"error,omitempty"`
}
