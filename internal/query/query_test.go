package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/model"
)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func fixture() []model.Task {
	done := now.Add(-time.Hour)
	return []model.Task{
		{ID: "a", Title: "Buy milk", Status: model.StatusTodo, Priority: model.PriorityLow, DueDate: "2024-01-09", Category: "Home"},
		{ID: "b", Title: "Write report", Description: "quarterly MILK numbers", Status: model.StatusInProgress, Priority: model.PriorityHigh, DueDate: "2024-01-10", StartTime: "09:00", Category: "Work"},
		{ID: "c", Title: "Call mom", Status: model.StatusCompleted, Priority: model.PriorityMedium, DueDate: "2024-01-08", CompletedAt: &done, CompletionPhoto: "p"},
		{ID: "d", Title: "Plan trip", Status: model.StatusTodo, Priority: model.PriorityHigh, DueDate: "2024-01-11", Category: "Home"},
		{ID: "e", Title: "Someday", Status: model.StatusTodo, Priority: model.PriorityMedium, DueDate: "later"},
	}
}

func TestParseBucket(t *testing.T) {
	b, err := ParseBucket("")
	require.NoError(t, err)
	assert.Equal(t, BucketAll, b)

	b, err = ParseBucket("Due-Soon")
	require.NoError(t, err)
	assert.Equal(t, BucketDueSoon, b)

	_, err = ParseBucket("archived")
	assert.Error(t, err)
}

func TestBuckets(t *testing.T) {
	tasks := fixture()
	cases := map[Bucket][]string{
		BucketAll:       {"a", "b", "c", "d", "e"},
		BucketCompleted: {"c"},
		BucketPending:   {"b"},
		BucketHigh:      {"b", "d"},
		BucketOverdue:   {"a"},
		BucketDueSoon:   {"b", "d"},
		BucketWithPhoto: {"c"},
	}
	for bucket, want := range cases {
		got := Filter(tasks, View{Bucket: bucket}, now)
		assert.Equal(t, want, ids(got), bucket)
	}
}

func TestFilterComposesAsIntersection(t *testing.T) {
	tasks := fixture()

	got := Filter(tasks, View{Search: "milk"}, now)
	assert.Equal(t, []string{"a", "b"}, ids(got), "search matches title or description")

	got = Filter(tasks, View{Search: "milk", Bucket: BucketHigh}, now)
	assert.Equal(t, []string{"b"}, ids(got))

	got = Filter(tasks, View{Bucket: BucketHigh, Category: "Home"}, now)
	assert.Equal(t, []string{"d"}, ids(got))

	got = Filter(tasks, View{Priority: model.PriorityMedium, Bucket: BucketCompleted}, now)
	assert.Equal(t, []string{"c"}, ids(got))

	got = Filter(tasks, View{Search: "nothing like this"}, now)
	assert.Empty(t, got)
}

func TestSortPriorityAscendingListsHighFirst(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", Priority: model.PriorityLow},
		{ID: "2", Priority: model.PriorityHigh},
		{ID: "3", Priority: model.PriorityMedium},
	}

	asc := Sort(tasks, SortPriority, Asc, time.UTC)
	assert.Equal(t, []string{"2", "3", "1"}, ids(asc))

	desc := Sort(tasks, SortPriority, Desc, time.UTC)
	assert.Equal(t, []string{"1", "3", "2"}, ids(desc))

	assert.Equal(t, []string{"1", "2", "3"}, ids(tasks), "input is not reordered")
}

func TestSortDueDatePutsBadDatesLast(t *testing.T) {
	got := Sort(fixture(), SortDueDate, Asc, time.UTC)
	assert.Equal(t, []string{"c", "a", "b", "d", "e"}, ids(got))
}

func TestSortDueDateUsesStartTime(t *testing.T) {
	tasks := []model.Task{
		{ID: "late", DueDate: "2024-01-10", StartTime: "18:00"},
		{ID: "early", DueDate: "2024-01-10", StartTime: "07:30"},
		{ID: "none", DueDate: "2024-01-10"},
	}
	got := Sort(tasks, SortDueDate, Asc, time.UTC)
	assert.Equal(t, []string{"none", "early", "late"}, ids(got))
}

func TestSortTitleAndCreated(t *testing.T) {
	tasks := []model.Task{
		{ID: "0b", Title: "beta"},
		{ID: "0c", Title: "Alpha"},
		{ID: "0a", Title: "gamma"},
	}
	assert.Equal(t, []string{"0c", "0b", "0a"}, ids(Sort(tasks, SortTitle, Asc, time.UTC)))
	assert.Equal(t, []string{"0c", "0b", "0a"}, ids(Sort(tasks, SortCreated, Desc, time.UTC)))
}

func TestSortCompleted(t *testing.T) {
	tasks := []model.Task{
		{ID: "done", Status: model.StatusCompleted},
		{ID: "open", Status: model.StatusTodo},
		{ID: "busy", Status: model.StatusInProgress},
	}
	assert.Equal(t, []string{"open", "busy", "done"}, ids(Sort(tasks, SortCompleted, Asc, time.UTC)))
	assert.Equal(t, []string{"done", "open", "busy"}, ids(Sort(tasks, SortCompleted, Desc, time.UTC)))

	key, err := ParseSortKey("completed")
	require.NoError(t, err)
	assert.Equal(t, SortCompleted, key)
}

func TestExecuteCountsWholeCollection(t *testing.T) {
	res := Execute(fixture(), View{Bucket: BucketCompleted}, now)

	assert.Len(t, res.Tasks, 1)
	assert.Equal(t, now, res.Now)
	assert.Equal(t, Counts{
		Total:        5,
		Todo:         3,
		InProgress:   1,
		Completed:    1,
		Overdue:      1,
		DueSoon:      2,
		HighPriority: 2,
		WithPhoto:    1,
	}, res.Counts)
}

func TestParseSortAndOrder(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortDueDate, k)

	_, err = ParseSortKey("size")
	assert.Error(t, err)

	o, err := ParseOrder("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, o)

	_, err = ParseOrder("up")
	assert.Error(t, err)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"Home", "Work"}, Categories(fixture()))
}
