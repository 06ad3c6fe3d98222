package schedule

import (
	"fmt"
	"time"
)

const (
	DefaultStartHour = 9
	DefaultEndHour   = 17
)

// Grid describes the daily operating window and the spacing between
// bookable slots. EndHour is exclusive.
type Grid struct {
	StartHour int
	EndHour   int
	Interval  time.Duration
}

var (
	// Hourly is the grid used by walk-in booking and reschedule flows.
	Hourly = Grid{StartHour: DefaultStartHour, EndHour: DefaultEndHour, Interval: time.Hour}

	// HalfHourly backs the denser time selector.
	HalfHourly = Grid{StartHour: DefaultStartHour, EndHour: DefaultEndHour, Interval: 30 * time.Minute}
)

// GridForInterval returns the default operating window at the given spacing.
func GridForInterval(interval time.Duration) Grid {
	return Grid{StartHour: DefaultStartHour, EndHour: DefaultEndHour, Interval: interval}
}

// Slots returns the grid's labels in ascending order.
func (g Grid) Slots() []string {
	return Generate(g.StartHour, g.EndHour, g.Interval)
}

// Generate produces the canonical HH:mm labels from startHour (inclusive) to
// endHour (exclusive) every interval. Intervals are truncated to whole
// minutes. An empty window or a non-positive interval yields no slots.
func Generate(startHour, endHour int, interval time.Duration) []string {
	step := int(interval / time.Minute)
	if startHour < 0 {
		startHour = 0
	}
	if endHour > 24 {
		endHour = 24
	}
	if step <= 0 || startHour >= endHour {
		return []string{}
	}

	end := endHour * 60
	slots := make([]string, 0, (end-startHour*60+step-1)/step)
	for m := startHour * 60; m < end; m += step {
		slots = append(slots, formatClock(m/60, m%60))
	}
	return slots
}

func formatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
