package activity

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for entry and slice dates.
const DateLayout = "2006-01-02"

// Window is a half-open [Start, End) time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// DayWindow returns the window covering date in loc.
func DayWindow(date string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return Window{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return Window{Start: start, End: start.AddDate(0, 0, 1)}, nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Overlaps reports whether [start, end] intersects the window.
func (w Window) Overlaps(start, end time.Time) bool {
	if end.IsZero() {
		end = start
	}
	return start.Before(w.End) && !end.Before(w.Start)
}
