package query

import (
	"math"
	"strings"
	"time"

	"taskflow/internal/model"
)

// OtherCategory labels tasks with no category.
const OtherCategory = "Other"

// Share is a labelled count inside a distribution.
type Share struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DayTrend counts tasks completed and created on one weekday.
type DayTrend struct {
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	Completed int    `json:"completed"`
	Created   int    `json:"created"`
}

// Dashboard is the statistics screen.
type Dashboard struct {
	Counts         Counts     `json:"counts"`
	CompletionRate int        `json:"completionRate"`
	PhotoRate      int        `json:"photoRate"`
	Priorities     []Share    `json:"priorities"`
	Categories     []Share    `json:"categories"`
	Week           []DayTrend `json:"week"`
}

// Analytics computes the dashboard at now. The week runs Monday to Sunday
// around now.
func Analytics(tasks []model.Task, now time.Time) Dashboard {
	counts := Count(tasks, now)
	dash := Dashboard{
		Counts:         counts,
		CompletionRate: percent(counts.Completed, counts.Total),
		PhotoRate:      percent(counts.WithPhoto, counts.Completed),
		Priorities:     priorityShares(tasks),
		Categories:     categoryShares(tasks),
		Week:           weekTrend(tasks, now),
	}
	return dash
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(whole)))
}

func priorityShares(tasks []model.Task) []Share {
	shares := []Share{
		{Label: string(model.PriorityHigh)},
		{Label: string(model.PriorityMedium)},
		{Label: string(model.PriorityLow)},
	}
	for _, task := range tasks {
		switch task.Priority {
		case model.PriorityHigh:
			shares[0].Count++
		case model.PriorityMedium:
			shares[1].Count++
		case model.PriorityLow:
			shares[2].Count++
		}
	}
	return shares
}

func categoryShares(tasks []model.Task) []Share {
	index := make(map[string]int)
	shares := []Share{}
	for _, task := range tasks {
		label := strings.TrimSpace(task.Category)
		if label == "" {
			label = OtherCategory
		}
		i, ok := index[label]
		if !ok {
			i = len(shares)
			index[label] = i
			shares = append(shares, Share{Label: label})
		}
		shares[i].Count++
	}
	return shares
}

func weekTrend(tasks []model.Task, now time.Time) []DayTrend {
	loc := now.Location()
	today := model.StartOfDay(now)
	// Monday is offset 0.
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)

	week := make([]DayTrend, 7)
	index := make(map[string]int, 7)
	for i := range week {
		day := monday.AddDate(0, 0, i)
		date := model.FormatDate(day)
		week[i] = DayTrend{Date: date, Weekday: day.Weekday().String()[:3]}
		index[date] = i
	}

	for _, task := range tasks {
		if task.CompletedAt != nil && task.Status == model.StatusCompleted {
			if i, ok := index[model.FormatDate(task.CompletedAt.In(loc))]; ok {
				week[i].Completed++
			}
		}
		if !task.CreatedAt.IsZero() {
			if i, ok := index[model.FormatDate(task.CreatedAt.In(loc))]; ok {
				week[i].Created++
			}
		}
	}
	return week
}
