// Package query derives display views and counters from a task collection.
// Every function is pure and takes a single "now" for the whole pass.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"taskflow/internal/model"
)

// Bucket is a named predicate used by list tabs.
type Bucket string

const (
	BucketAll       Bucket = "all"
	BucketCompleted Bucket = "completed"
	// BucketPending selects tasks in progress; the label is historical.
	BucketPending   Bucket = "pending"
	BucketHigh      Bucket = "high"
	BucketOverdue   Bucket = "overdue"
	BucketDueSoon   Bucket = "due-soon"
	BucketWithPhoto Bucket = "with-photo"
)

var buckets = []Bucket{BucketAll, BucketCompleted, BucketPending, BucketHigh, BucketOverdue, BucketDueSoon, BucketWithPhoto}

// Buckets lists every known bucket.
func Buckets() []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets)
	return out
}

// ParseBucket accepts a bucket name; empty means all.
func ParseBucket(raw string) (Bucket, error) {
	value := Bucket(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return BucketAll, nil
	}
	for _, b := range buckets {
		if b == value {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", raw)
}

// Match reports whether task belongs to the bucket at now.
func (b Bucket) Match(task model.Task, now time.Time) bool {
	switch b {
	case BucketCompleted:
		return task.Status == model.StatusCompleted
	case BucketPending:
		return task.Status == model.StatusInProgress
	case BucketHigh:
		return task.Priority == model.PriorityHigh
	case BucketOverdue:
		return model.IsOverdue(task, now)
	case BucketDueSoon:
		return model.IsDueSoon(task, now)
	case BucketWithPhoto:
		return task.Status == model.StatusCompleted && task.HasPhoto()
	}
	return true
}

// SortKey selects the ordering comparator.
type SortKey string

const (
	SortDueDate   SortKey = "dueDate"
	SortPriority  SortKey = "priority"
	SortCreated   SortKey = "created"
	SortTitle     SortKey = "title"
	SortCompleted SortKey = "completed" // open tasks first
)

// ParseSortKey accepts a sort key; empty means dueDate.
func ParseSortKey(raw string) (SortKey, error) {
	switch SortKey(strings.TrimSpace(raw)) {
	case "", SortDueDate:
		return SortDueDate, nil
	case SortPriority:
		return SortPriority, nil
	case SortCreated:
		return SortCreated, nil
	case SortTitle:
		return SortTitle, nil
	case SortCompleted:
		return SortCompleted, nil
	}
	return "", fmt.Errorf("unknown sort key %q", raw)
}

// Order is the direction flip applied after the comparator.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder accepts asc or desc; empty means asc.
func ParseOrder(raw string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(raw))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort order %q", raw)
}

// View holds the list parameters. Zero value lists everything by due date.
type View struct {
	Search   string
	Bucket   Bucket
	Priority model.Priority
	Category string
	SortBy   SortKey
	Order    Order
}

// Counts are computed over the whole collection, independent of the view.
type Counts struct {
	Total        int `json:"total"`
	Todo         int `json:"todo"`
	InProgress   int `json:"inProgress"`
	Completed    int `json:"completed"`
	Overdue      int `json:"overdue"`
	DueSoon      int `json:"dueSoon"`
	HighPriority int `json:"highPriority"`
	WithPhoto    int `json:"withPhoto"`
}

// Result is one query pass.
type Result struct {
	Tasks  []model.Task `json:"tasks"`
	Counts Counts       `json:"counts"`
	Now    time.Time    `json:"now"`
}

// Execute filters and sorts tasks for display and counts the full set.
func Execute(tasks []model.Task, view View, now time.Time) Result {
	return Result{
		Tasks:  Sort(Filter(tasks, view, now), view.SortBy, view.Order, now.Location()),
		Counts: Count(tasks, now),
		Now:    now,
	}
}

// Filter applies search, bucket, priority and category as one intersection.
func Filter(tasks []model.Task, view View, now time.Time) []model.Task {
	term := strings.ToLower(strings.TrimSpace(view.Search))
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if term != "" && !matchesSearch(task, term) {
			continue
		}
		if !view.Bucket.Match(task, now) {
			continue
		}
		if view.Priority != "" && task.Priority != view.Priority {
			continue
		}
		if view.Category != "" && task.Category != view.Category {
			continue
		}
		out = append(out, task)
	}
	return out
}

func matchesSearch(task model.Task, term string) bool {
	return strings.Contains(strings.ToLower(task.Title), term) ||
		strings.Contains(strings.ToLower(task.Description), term)
}

// Sort orders a copy of tasks. The priority comparator is rank(b)-rank(a), so
// ascending order lists high priority first.
func Sort(tasks []model.Task, key SortKey, order Order, loc *time.Location) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)

	cmp := comparator(key, loc)
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if order == Desc {
			c = -c
		}
		return c < 0
	})
	return out
}

func comparator(key SortKey, loc *time.Location) func(a, b model.Task) int {
	switch key {
	case SortPriority:
		return func(a, b model.Task) int {
			return b.Priority.Rank() - a.Priority.Rank()
		}
	case SortCreated:
		return func(a, b model.Task) int {
			return strings.Compare(a.ID, b.ID)
		}
	case SortTitle:
		return func(a, b model.Task) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortCompleted:
		return func(a, b model.Task) int {
			return boolRank(a.Completed()) - boolRank(b.Completed())
		}
	default:
		return func(a, b model.Task) int {
			return compareStart(a, b, loc)
		}
	}
}

func boolRank(v bool) int {
	if v {
		return 1
	}
	return 0
}

// compareStart orders by dueDate+startTime; tasks without a usable date go last.
func compareStart(a, b model.Task, loc *time.Location) int {
	ta, okA := model.StartsAt(a, loc)
	tb, okB := model.StartsAt(b, loc)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	case ta.Before(tb):
		return -1
	case ta.After(tb):
		return 1
	}
	return 0
}

// Count tallies the summary counters.
func Count(tasks []model.Task, now time.Time) Counts {
	c := Counts{Total: len(tasks)}
	for _, task := range tasks {
		switch task.Status {
		case model.StatusTodo:
			c.Todo++
		case model.StatusInProgress:
			c.InProgress++
		case model.StatusCompleted:
			c.Completed++
			if task.HasPhoto() {
				c.WithPhoto++
			}
		}
		if model.IsOverdue(task, now) {
			c.Overdue++
		}
		if model.IsDueSoon(task, now) {
			c.DueSoon++
		}
		if task.Priority == model.PriorityHigh {
			c.HighPriority++
		}
	}
	return c
}

// Categories lists distinct non-empty categories in first-seen order.
func Categories(tasks []model.Task) []string {
	seen := make(map[string]bool)
	var out []string
	for _, task := range tasks {
		name := strings.TrimSpace(task.Category)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
