package query

import (
	"time"

	"taskflow/internal/model"
)

// Day is one cell of the month grid. Blank cells pad the first week.
type Day struct {
	Date  string       `json:"date,omitempty"`
	Day   int          `json:"day,omitempty"`
	Today bool         `json:"today,omitempty"`
	Blank bool         `json:"blank,omitempty"`
	Tasks []model.Task `json:"tasks,omitempty"`
}

// Calendar is a Sunday-first month grid.
type Calendar struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][]Day    `json:"weeks"`
}

// Month lays out year/month in weeks of seven cells. Tasks land on the day
// their dueDate names; tasks with other or bad dates are skipped.
func Month(tasks []model.Task, year int, month time.Month, now time.Time) Calendar {
	loc := now.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	today := model.FormatDate(now)

	byDate := make(map[string][]model.Task)
	for _, task := range Sort(tasks, SortDueDate, Asc, loc) {
		byDate[task.DueDate] = append(byDate[task.DueDate], task)
	}

	cells := make([]Day, 0, 42)
	for i := 0; i < int(first.Weekday()); i++ {
		cells = append(cells, Day{Blank: true})
	}
	for d := 1; d <= last; d++ {
		date := model.FormatDate(time.Date(year, month, d, 0, 0, 0, 0, loc))
		cells = append(cells, Day{
			Date:  date,
			Day:   d,
			Today: date == today,
			Tasks: byDate[date],
		})
	}
	for len(cells)%7 != 0 {
		cells = append(cells, Day{Blank: true})
	}

	cal := Calendar{Year: year, Month: month}
	for i := 0; i < len(cells); i += 7 {
		cal.Weeks = append(cal.Weeks, cells[i:i+7])
	}
	return cal
}

// OnDate returns tasks due on date in start order.
func OnDate(tasks []model.Task, date string, loc *time.Location) []model.Task {
	var out []model.Task
	for _, task := range tasks {
		if task.DueDate == date {
			out = append(out, task)
		}
	}
	return Sort(out, SortDueDate, Asc, loc)
}
