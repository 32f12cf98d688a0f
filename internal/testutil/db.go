// Package testutil provides shared helpers for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// NewDB opens a migrated in-memory SQLite database private to t. It is
// closed when the test ends.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := repository.Open(sqlite.Open(dsn), logger.Discard)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		_ = repository.Close(db)
	})
	return db
}

// Clock returns a fixed time source.
func Clock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

// Task builds a todo medium-priority task due on date.
func Task(title, date string) model.Task {
	return model.Task{
		Title:     title,
		Status:    model.StatusTodo,
		Priority:  model.PriorityMedium,
		DueDate:   date,
		Recurring: model.RecurNone,
		Tags:      model.Tags{},
	}
}
