package service

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/query"
)

// ReminderService builds human-readable summaries for scheduled notifications.
type ReminderService struct{}

func NewReminderService() *ReminderService {
	return &ReminderService{}
}

// DailySummary renders a Telegram HTML digest of overdue, due soon and in
// progress tasks at now.
func (s *ReminderService) DailySummary(tasks []model.Task, now time.Time) string {
	loc := now.Location()
	overdue := query.Sort(query.Filter(tasks, query.View{Bucket: query.BucketOverdue}, now), query.SortDueDate, query.Asc, loc)
	dueSoon := query.Sort(query.Filter(tasks, query.View{Bucket: query.BucketDueSoon}, now), query.SortDueDate, query.Asc, loc)
	active := query.Sort(query.Filter(tasks, query.View{Bucket: query.BucketPending}, now), query.SortPriority, query.Asc, loc)

	var builder strings.Builder
	builder.WriteString("📋 <b>Сводка задач</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("02.01.2006 15:04")))

	counts := query.Count(tasks, now)
	builder.WriteString(fmt.Sprintf("Всего: %d · в работе: %d · выполнено: %d\n\n", counts.Total, counts.InProgress, counts.Completed))

	writeSection(&builder, "⚠️ <b>Просрочено</b>", "— ничего не просрочено", overdue, now)
	writeSection(&builder, "⏳ <b>Скоро срок</b>", "— на сегодня и завтра пусто", dueSoon, now)
	writeSection(&builder, "🔥 <b>В работе</b>", "— нет задач в работе", active, now)

	return strings.TrimSpace(builder.String())
}

func writeSection(b *strings.Builder, title, empty string, tasks []model.Task, now time.Time) {
	b.WriteString(title)
	b.WriteByte('\n')
	if len(tasks) == 0 {
		b.WriteString(empty)
		b.WriteString("\n\n")
		return
	}
	for _, task := range tasks {
		b.WriteString(FormatTaskLine(task, now))
	}
	b.WriteByte('\n')
}

// FormatTaskLine renders one task for a Telegram HTML message.
func FormatTaskLine(task model.Task, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s %s", PriorityIcon(task.Priority), html.EscapeString(strings.TrimSpace(task.Title))))
	if category := strings.TrimSpace(task.Category); category != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(category)))
	}

	when := task.DueDate
	if task.StartTime != "" {
		when += " " + task.StartTime
		if task.EndTime != "" {
			when += "–" + task.EndTime
		}
	}
	if model.IsOverdue(task, now) {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s · <b>просрочено</b>", html.EscapeString(when)))
	} else if when != "" {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s", html.EscapeString(when)))
	}
	if task.Recurring.Active() {
		sb.WriteString(fmt.Sprintf(" · ♻️ %s", RecurrenceLabel(task.Recurring)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func PriorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "🟢"
	}
	return "🟡"
}

func PriorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "высокий"
	case model.PriorityLow:
		return "низкий"
	}
	return "средний"
}

func StatusLabel(s model.Status) string {
	switch s {
	case model.StatusInProgress:
		return "в работе"
	case model.StatusCompleted:
		return "выполнено"
	}
	return "к выполнению"
}

func RecurrenceLabel(r model.Recurrence) string {
	switch r {
	case model.RecurDaily:
		return "ежедневно"
	case model.RecurWeekly:
		return "еженедельно"
	case model.RecurMonthly:
		return "ежемесячно"
	}
	return "не повторяется"
}

// OverdueWatcher remembers which tasks were overdue at the previous check.
type OverdueWatcher struct {
	mu      sync.Mutex
	primed  bool
	overdue map[string]bool
}

func NewOverdueWatcher() *OverdueWatcher {
	return &OverdueWatcher{overdue: make(map[string]bool)}
}

// Check returns the tasks that are overdue now but were not at the previous
// check. The first call only records the current state.
func (w *OverdueWatcher) Check(tasks []model.Task, now time.Time) []model.Task {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := make(map[string]bool)
	var fresh []model.Task
	for _, task := range tasks {
		if !model.IsOverdue(task, now) {
			continue
		}
		current[task.ID] = true
		if w.primed && !w.overdue[task.ID] {
			fresh = append(fresh, task)
		}
	}
	w.overdue = current
	w.primed = true
	return fresh
}
