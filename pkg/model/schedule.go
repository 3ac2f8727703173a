package model

import (
	"time"
)

// HourRange is one lesson slot as printed on the timetable, e.g. {"8:00", "8:45"}.
type HourRange [2]string

// Schedule is a snapshot of the scraped timetable.
type Schedule struct {
	ValidBranches  []int       `json:"valid_branches"`
	ScheduleBranch int         `json:"schedule_branch"` // branch the ranges came from
	Ranges         []HourRange `json:"schedule"`
	FetchedAt      time.Time   `json:"fetched_at"`
}
