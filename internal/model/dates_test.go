package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("UTC+7", 7*60*60)

func at(day string, hour, min int) time.Time {
	d, err := ParseDate(day, testLoc)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func TestIsOverdueHonoursEndTime(t *testing.T) {
	task := Task{DueDate: "2024-03-10", EndTime: "09:00", Status: StatusInProgress}

	assert.True(t, IsOverdue(task, at("2024-03-10", 10, 0)))
	assert.False(t, IsOverdue(task, at("2024-03-10", 8, 0)))
	assert.False(t, IsOverdue(task, at("2024-03-10", 9, 0)), "deadline itself is not overdue")
}

func TestIsOverdueWithoutEndTimeUsesEndOfDay(t *testing.T) {
	task := Task{DueDate: "2024-03-10", Status: StatusTodo}

	assert.False(t, IsOverdue(task, at("2024-03-10", 23, 59)))
	assert.True(t, IsOverdue(task, at("2024-03-11", 0, 0)))
}

func TestIsOverdueIgnoresCompletedAndBadDates(t *testing.T) {
	now := at("2024-05-01", 12, 0)

	assert.False(t, IsOverdue(Task{DueDate: "2024-01-01", Status: StatusCompleted}, now))
	assert.False(t, IsOverdue(Task{DueDate: "not-a-date", Status: StatusTodo}, now))
}

func TestIsDueSoon(t *testing.T) {
	now := at("2024-03-10", 15, 30)

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"today", Task{DueDate: "2024-03-10", Status: StatusTodo}, true},
		{"tomorrow ignores times", Task{DueDate: "2024-03-11", StartTime: "06:00", EndTime: "07:00", Status: StatusTodo}, true},
		{"day after tomorrow", Task{DueDate: "2024-03-12", Status: StatusTodo}, false},
		{"yesterday", Task{DueDate: "2024-03-09", Status: StatusInProgress}, false},
		{"completed", Task{DueDate: "2024-03-10", Status: StatusCompleted}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDueSoon(tc.task, now))
		})
	}
}

func TestIsDueSoonAnyTimeToday(t *testing.T) {
	task := Task{DueDate: "2024-03-11", StartTime: "22:00", EndTime: "23:00", Status: StatusTodo}
	for _, h := range []int{0, 8, 23} {
		assert.True(t, IsDueSoon(task, at("2024-03-10", h, 0)), "hour %d", h)
	}
}

func TestStartsAtCombinesStartTime(t *testing.T) {
	got, ok := StartsAt(Task{DueDate: "2024-03-10", StartTime: "14:15"}, testLoc)
	require.True(t, ok)
	assert.Equal(t, at("2024-03-10", 14, 15), got)

	got, ok = StartsAt(Task{DueDate: "2024-03-10"}, testLoc)
	require.True(t, ok)
	assert.Equal(t, at("2024-03-10", 0, 0), got)

	_, ok = StartsAt(Task{DueDate: ""}, testLoc)
	assert.False(t, ok)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 45, m)

	_, _, err = ParseClock("7pm")
	assert.Error(t, err)
}
