package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskJSONCarriesComputedCompleted(t *testing.T) {
	data, err := json.Marshal(Task{ID: "a", Title: "Buy milk", Status: StatusCompleted, DueDate: "2024-01-01"})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, true, out["completed"])
	assert.Equal(t, "completed", out["status"])
	assert.Equal(t, []interface{}{}, out["tags"], "nil tags are exported as an empty array")
}

func TestTaskJSONIgnoresStoredCompletedOnDecode(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","status":"todo","completed":true,"tags":["a"]}`), &task))
	assert.False(t, task.Completed())
	assert.Equal(t, Tags{"a"}, task.Tags)
}

func TestTagsValueAndScan(t *testing.T) {
	v, err := Tags{"home", "urgent"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["home","urgent"]`, v)

	var tags Tags
	require.NoError(t, tags.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, Tags{"a", "b"}, tags)

	require.NoError(t, tags.Scan(nil))
	assert.Empty(t, tags)

	assert.Error(t, tags.Scan(42))
}

func TestTaskUpdateColumnsAndApply(t *testing.T) {
	title := "New"
	status := StatusCompleted
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	u := TaskUpdate{Title: &title, Status: &status, Completion: &Completion{At: &now, Photo: "p"}}

	cols := u.Columns()
	assert.Equal(t, "New", cols["title"])
	assert.Equal(t, "completed", cols["status"])
	assert.Equal(t, now, cols["completed_at"])
	assert.Equal(t, "p", cols["completion_photo"])
	assert.NotContains(t, cols, "priority")

	task := Task{Title: "Old"}
	u.ApplyTo(&task)
	assert.Equal(t, "New", task.Title)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)

	clear := TaskUpdate{Completion: &Completion{}}
	assert.Nil(t, clear.Columns()["completed_at"])
	clear.ApplyTo(&task)
	assert.Nil(t, task.CompletedAt)
	assert.Empty(t, task.CompletionPhoto)

	assert.True(t, TaskUpdate{}.Empty())
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.False(t, Priority("urgent").Valid())
}

func TestRecurrence(t *testing.T) {
	assert.True(t, RecurWeekly.Active())
	assert.False(t, RecurNone.Active())
	assert.False(t, Recurrence("").Active())
	assert.True(t, Recurrence("").Valid())
	assert.False(t, Recurrence("yearly").Valid())
}
