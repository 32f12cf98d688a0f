package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"taskflow/internal/model"
	"taskflow/internal/query"
	"taskflow/internal/service"
)

const (
	noCategory    = "Без категории"
	iconDefault   = "🟢"
	iconDue       = "⏳"
	iconOverdue   = "⚠️"
	iconCompleted = "✅"
	iconRecurring = "♻️"
)

var categoryIcons = map[string]string{
	"учеба":         "🎓",
	"учёба":         "🎓",
	"работа":        "💼",
	"покупки":       "🛒",
	"здоровье":      "🩺",
	"личное":        "🧩",
	"без категории": "📁",
}

const defaultCategoryIcon = "🏷️"

var weekdays = map[string]string{
	"Mon": "Пн",
	"Tue": "Вт",
	"Wed": "Ср",
	"Thu": "Чт",
	"Fri": "Пт",
	"Sat": "Сб",
	"Sun": "Вс",
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// shortID is the id suffix users type to refer to a task.
func shortID(id string) string {
	if len(id) <= service.MinRefLength {
		return id
	}
	return id[len(id)-service.MinRefLength:]
}

func categoryIcon(name string) string {
	if icon, ok := categoryIcons[strings.ToLower(strings.TrimSpace(name))]; ok {
		return icon
	}
	return defaultCategoryIcon
}

// categoryLabel is the HTML form used in messages.
func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	return fmt.Sprintf("%s %s", categoryIcon(base), escape(normalizeTitle(base)))
}

// categoryButton is the plain text form used on keyboard buttons.
func categoryButton(name string) string {
	base := strings.TrimSpace(name)
	return fmt.Sprintf("%s %s", categoryIcon(base), normalizeTitle(base))
}

// stripCategoryIcon undoes categoryButton so a tapped button stores the bare
// name.
func stripCategoryIcon(text string) string {
	text = strings.TrimSpace(text)
	head, rest, ok := strings.Cut(text, " ")
	if !ok {
		return text
	}
	if head == defaultCategoryIcon {
		return strings.TrimSpace(rest)
	}
	for _, icon := range categoryIcons {
		if head == icon {
			return strings.TrimSpace(rest)
		}
	}
	return text
}

func statusIcon(s model.Status) string {
	switch s {
	case model.StatusInProgress:
		return "🚧"
	case model.StatusCompleted:
		return iconCompleted
	}
	return "📝"
}

func bucketLabel(bucket query.Bucket) string {
	switch bucket {
	case query.BucketCompleted:
		return "выполненные"
	case query.BucketPending:
		return "в работе"
	case query.BucketHigh:
		return "высокий приоритет"
	case query.BucketOverdue:
		return "просроченные"
	case query.BucketDueSoon:
		return "скоро срок"
	case query.BucketWithPhoto:
		return "с фото"
	}
	return "все"
}

func bucketNames() string {
	var names []string
	for _, bucket := range query.Buckets() {
		names = append(names, string(bucket))
	}
	return strings.Join(names, ", ")
}

func weekdayLabel(day string) string {
	if label, ok := weekdays[day]; ok {
		return label
	}
	return day
}

// dueLabel shows the due date with the time window, if any.
func dueLabel(task model.Task, now time.Time) string {
	when := task.DueDate
	if task.StartTime != "" {
		when += " " + task.StartTime
		if task.EndTime != "" {
			when += "–" + task.EndTime
		}
	}
	if model.IsOverdue(task, now) {
		return escape(when) + " <b>просрочено</b>"
	}
	return escape(when)
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	switch {
	case task.Completed():
		icon = iconCompleted
	case model.IsOverdue(task, now):
		icon = iconOverdue
	case model.IsDueSoon(task, now):
		icon = iconDue
	}

	b.WriteString(fmt.Sprintf("%s <code>%s</code> %s\n", icon, shortID(task.ID), escape(normalizeTitle(task.Title))))
	b.WriteString(fmt.Sprintf("   %s %s · %s %s\n", statusIcon(task.Status), service.StatusLabel(task.Status), service.PriorityIcon(task.Priority), service.PriorityLabel(task.Priority)))
	b.WriteString(fmt.Sprintf("   ⏰ %s", dueLabel(task, now)))
	if task.Recurring.Active() {
		b.WriteString(fmt.Sprintf(" · %s %s", iconRecurring, service.RecurrenceLabel(task.Recurring)))
	}
	b.WriteByte('\n')
	if task.Category != "" {
		b.WriteString(fmt.Sprintf("   %s\n", categoryLabel(task.Category)))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}
