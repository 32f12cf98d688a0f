package model

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ParseDate reads a YYYY-MM-DD calendar date as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseClock reads an HH:MM time of day and returns hours and minutes.
func ParseClock(value string) (int, int, error) {
	c, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	return c.Hour(), c.Minute(), nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), day.Location())
}

func atClock(day time.Time, clock string) (time.Time, bool) {
	h, min, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, h, min, 0, 0, day.Location()), true
}

// Deadline is dueDate at endTime, or the last millisecond of dueDate when
// no end time is set.
func Deadline(t Task, loc *time.Location) (time.Time, bool) {
	day, err := ParseDate(t.DueDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	if t.EndTime != "" {
		if at, ok := atClock(day, t.EndTime); ok {
			return at, true
		}
	}
	return endOfDay(day), true
}

// StartsAt is dueDate combined with startTime, used for ordering.
func StartsAt(t Task, loc *time.Location) (time.Time, bool) {
	day, err := ParseDate(t.DueDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	if t.StartTime != "" {
		if at, ok := atClock(day, t.StartTime); ok {
			return at, true
		}
	}
	return day, true
}

// IsOverdue reports whether an open task is past its deadline at now.
func IsOverdue(t Task, now time.Time) bool {
	if t.Completed() {
		return false
	}
	deadline, ok := Deadline(t, now.Location())
	if !ok {
		return false
	}
	return now.After(deadline)
}

// IsDueSoon reports whether an open task is due today or tomorrow. Times of
// day are ignored.
func IsDueSoon(t Task, now time.Time) bool {
	if t.Completed() {
		return false
	}
	due, err := ParseDate(t.DueDate, now.Location())
	if err != nil {
		return false
	}
	today := StartOfDay(now)
	tomorrowEnd := endOfDay(today.AddDate(0, 0, 1))
	return !due.Before(today) && !due.After(tomorrowEnd)
}
