package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority orders tasks high > medium > low.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank maps the priority onto 1..3. Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Recurrence governs spawning of a follow-up task on completion.
type Recurrence string

const (
	RecurNone    Recurrence = "none"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case "", RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}

// Active reports whether completing the task spawns a new one.
func (r Recurrence) Active() bool {
	return r == RecurDaily || r == RecurWeekly || r == RecurMonthly
}

// Tags is an ordered list of short labels stored as a JSON column.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (t *Tags) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan tags: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	*t = out
	return nil
}

// MarshalJSON always emits an array, never null.
func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// Clone returns an independent copy.
func (t Tags) Clone() Tags {
	if t == nil {
		return nil
	}
	out := make(Tags, len(t))
	copy(out, t)
	return out
}

// Task is the single unit of work tracked by the application.
type Task struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id,omitempty"`
	Title             string     `gorm:"not null" json:"title"`
	Description       string     `json:"description,omitempty"`
	Notes             string     `gorm:"type:text" json:"notes,omitempty"`
	Category          string     `gorm:"index" json:"category,omitempty"`
	Status            Status     `gorm:"index;size:16" json:"status"`
	Priority          Priority   `gorm:"index;size:8" json:"priority"`
	DueDate           string     `gorm:"index;size:10" json:"dueDate"`
	StartTime         string     `gorm:"size:5" json:"startTime,omitempty"`
	EndTime           string     `gorm:"size:5" json:"endTime,omitempty"`
	Tags              Tags       `gorm:"type:text" json:"tags"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CompletionPhoto   string     `gorm:"type:text" json:"completionPhoto,omitempty"`
	Recurring         Recurrence `gorm:"size:8" json:"recurring,omitempty"`
	LastRecurringDate string     `gorm:"size:10" json:"lastRecurringDate,omitempty"`
	CreatedAt         time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Completed is derived from Status; there is no stored flag to keep in sync.
func (t Task) Completed() bool {
	return t.Status == StatusCompleted
}

// HasPhoto reports whether a completion photo is attached.
func (t Task) HasPhoto() bool {
	return t.CompletionPhoto != ""
}

type taskJSON Task

// MarshalJSON adds the computed "completed" flag expected by the export format.
func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		taskJSON
		Completed bool `json:"completed"`
	}{taskJSON(t), t.Completed()})
}

// Completion carries the completion fields of an update. A nil At clears
// both the timestamp and the photo.
type Completion struct {
	At    *time.Time
	Photo string
}

// TaskUpdate is a partial update; nil fields are left untouched. When
// IfStatus is set the update only applies while the task still has that
// status.
type TaskUpdate struct {
	Title       *string
	Description *string
	Notes       *string
	Category    *string
	Priority    *Priority
	DueDate     *string
	StartTime   *string
	EndTime     *string
	Tags        *Tags
	Recurring   *Recurrence
	Status      *Status
	Completion  *Completion
	IfStatus    *Status
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return len(u.Columns()) == 0
}

// Columns maps the update onto database column names.
func (u TaskUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Notes != nil {
		cols["notes"] = *u.Notes
	}
	if u.Category != nil {
		cols["category"] = *u.Category
	}
	if u.Priority != nil {
		cols["priority"] = string(*u.Priority)
	}
	if u.DueDate != nil {
		cols["due_date"] = *u.DueDate
	}
	if u.StartTime != nil {
		cols["start_time"] = *u.StartTime
	}
	if u.EndTime != nil {
		cols["end_time"] = *u.EndTime
	}
	if u.Tags != nil {
		cols["tags"] = *u.Tags
	}
	if u.Recurring != nil {
		cols["recurring"] = string(*u.Recurring)
	}
	if u.Status != nil {
		cols["status"] = string(*u.Status)
	}
	if u.Completion != nil {
		if u.Completion.At == nil {
			cols["completed_at"] = nil
			cols["completion_photo"] = ""
		} else {
			cols["completed_at"] = *u.Completion.At
			cols["completion_photo"] = u.Completion.Photo
		}
	}
	return cols
}

// ApplyTo copies the update onto t.
func (u TaskUpdate) ApplyTo(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Notes != nil {
		t.Notes = *u.Notes
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.DueDate != nil {
		t.DueDate = *u.DueDate
	}
	if u.StartTime != nil {
		t.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		t.EndTime = *u.EndTime
	}
	if u.Tags != nil {
		t.Tags = u.Tags.Clone()
	}
	if u.Recurring != nil {
		t.Recurring = *u.Recurring
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Completion != nil {
		if u.Completion.At == nil {
			t.CompletedAt = nil
			t.CompletionPhoto = ""
		} else {
			at := *u.Completion.At
			t.CompletedAt = &at
			t.CompletionPhoto = u.Completion.Photo
		}
	}
}
