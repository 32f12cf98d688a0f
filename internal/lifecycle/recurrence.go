package lifecycle

import (
	"fmt"
	"time"

	"taskflow/internal/model"
)

// NextDueDate advances a YYYY-MM-DD date by one recurrence period. Monthly
// steps keep the day of month and clamp to the last day of the target month.
func NextDueDate(due string, r model.Recurrence) (string, error) {
	d, err := time.ParseInLocation(model.DateLayout, due, time.UTC)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDueDate, due)
	}

	switch r {
	case model.RecurDaily:
		d = d.AddDate(0, 0, 1)
	case model.RecurWeekly:
		d = d.AddDate(0, 0, 7)
	case model.RecurMonthly:
		d = addMonthClamped(d)
	default:
		return "", fmt.Errorf("recurrence %q does not repeat", r)
	}
	return model.FormatDate(d), nil
}

func addMonthClamped(d time.Time) time.Time {
	year, month, day := d.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	if last := daysInMonth(month, year); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, d.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Spawn builds the follow-up of a recurring task completed at now. The copy
// has no id, starts in todo and carries no completion data.
func Spawn(task model.Task, now time.Time) (*model.Task, error) {
	if !task.Recurring.Active() {
		return nil, nil
	}
	next, err := NextDueDate(task.DueDate, task.Recurring)
	if err != nil {
		return nil, err
	}

	spawn := task
	spawn.ID = ""
	spawn.Status = model.StatusTodo
	spawn.CompletedAt = nil
	spawn.CompletionPhoto = ""
	spawn.DueDate = next
	spawn.LastRecurringDate = model.FormatDate(now)
	spawn.Tags = task.Tags.Clone()
	spawn.CreatedAt = time.Time{}
	spawn.UpdatedAt = time.Time{}
	return &spawn, nil
}
