// SPDX-License-Identifier: MIT

package gitmine

import (
	"fmt"
	"time"
)

// Grouping controls how commits are binned by date before diffing. Binning
// trades precision for speed: one commit is kept per bin.
type Grouping int

const (
	GroupNone Grouping = iota
	GroupDaily
	GroupWeekly
	GroupMonthly
)

// ParseGrouping parses a grouping name (case-sensitive lower).
func ParseGrouping(s string) (Grouping, error) {
	switch s {
	case "none":
		return GroupNone, nil
	case "daily":
		return GroupDaily, nil
	case "weekly":
		return GroupWeekly, nil
	case "monthly":
		return GroupMonthly, nil
	default:
		return GroupNone, fmt.Errorf("unknown date grouping %q", s)
	}
}

func (g Grouping) String() string {
	switch g {
	case GroupDaily:
		return "daily"
	case GroupWeekly:
		return "weekly"
	case GroupMonthly:
		return "monthly"
	default:
		return "none"
	}
}

// Bin truncates t to the start of its group in UTC. GroupNone returns t
// unchanged (normalised to UTC).
func (g Grouping) Bin(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GroupDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GroupWeekly:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// Monday is the start of the week.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case GroupMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}
