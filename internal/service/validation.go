package service

import (
	"fmt"
	"strings"
	"time"

	"taskflow/internal/model"
)

// ValidationError points at the input field that was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// validateInput trims and defaults input. An empty due date means today.
func validateInput(in TaskInput, now time.Time) (TaskInput, error) {
	out := TaskInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Notes:       strings.TrimSpace(in.Notes),
		Category:    strings.TrimSpace(in.Category),
		Priority:    model.Priority(strings.ToLower(strings.TrimSpace(string(in.Priority)))),
		DueDate:     strings.TrimSpace(in.DueDate),
		StartTime:   strings.TrimSpace(in.StartTime),
		EndTime:     strings.TrimSpace(in.EndTime),
		Tags:        cleanTags(in.Tags),
		Recurring:   model.Recurrence(strings.ToLower(strings.TrimSpace(string(in.Recurring)))),
	}

	if out.Title == "" {
		return TaskInput{}, invalid("title", "is required")
	}

	if out.DueDate == "" {
		out.DueDate = model.FormatDate(now)
	} else if _, err := model.ParseDate(out.DueDate, now.Location()); err != nil {
		return TaskInput{}, invalid("dueDate", "%v", err)
	}

	var start, end int
	if out.StartTime != "" {
		h, m, err := model.ParseClock(out.StartTime)
		if err != nil {
			return TaskInput{}, invalid("startTime", "%v", err)
		}
		start = h*60 + m
	}
	if out.EndTime != "" {
		h, m, err := model.ParseClock(out.EndTime)
		if err != nil {
			return TaskInput{}, invalid("endTime", "%v", err)
		}
		end = h*60 + m
	}
	if out.StartTime != "" && out.EndTime != "" && end <= start {
		return TaskInput{}, invalid("endTime", "must be after start time %s", out.StartTime)
	}

	if out.Priority == "" {
		out.Priority = model.PriorityMedium
	} else if !out.Priority.Valid() {
		return TaskInput{}, invalid("priority", "unknown priority %q", in.Priority)
	}

	if out.Recurring == "" {
		out.Recurring = model.RecurNone
	} else if !out.Recurring.Valid() {
		return TaskInput{}, invalid("recurring", "unknown recurrence %q", in.Recurring)
	}

	return out, nil
}

// cleanTags trims tags, drops empty ones and keeps the first of duplicates.
func cleanTags(tags []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// SplitTags reads a comma separated tag list.
func SplitTags(raw string) []string {
	return cleanTags(strings.Split(raw, ","))
}
