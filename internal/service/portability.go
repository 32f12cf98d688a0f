package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"taskflow/internal/model"
)

// ErrMalformedImport is returned when an import file cannot be read as a list
// of tasks. Nothing is written in that case.
var ErrMalformedImport = errors.New("malformed import file")

// ImportResult counts the tasks created by an import.
type ImportResult struct {
	Created int `json:"created"`
}

// ExportFileName is the suggested backup name for a given day.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("taskflow-backup-%s.json", model.FormatDate(now))
}

// Export writes the current snapshot as an indented JSON array.
func (s *TaskService) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Snapshot()); err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	return nil
}

// Import reads a JSON array of tasks and creates each one as a new task,
// in order. Ids and timestamps in the file are discarded. The whole file is
// checked before the first write; a failed create stops the import and
// keeps what was created so far.
func (s *TaskService) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	tasks, err := decodeImport(r, s.Now())
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	defer func() {
		if res.Created > 0 {
			s.await(ctx)
		}
	}()
	for i := range tasks {
		if err := s.gateway.Create(ctx, &tasks[i]); err != nil {
			return res, fmt.Errorf("import task %d: %w", i+1, err)
		}
		res.Created++
	}
	return res, nil
}

func decodeImport(r io.Reader, now time.Time) ([]model.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedImport)
	}

	tasks := make([]model.Task, 0, len(raw))
	for i, entry := range raw {
		task, err := decodeEntry(entry, now)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedImport, i+1, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// decodeEntry reads one task and holds it to the same rules as a task typed
// in by hand. Status is kept as exported; a missing due date means today.
func decodeEntry(entry json.RawMessage, now time.Time) (model.Task, error) {
	if trimmed := bytes.TrimSpace(entry); len(trimmed) == 0 || trimmed[0] != '{' {
		return model.Task{}, errors.New("not an object")
	}

	var task model.Task
	if err := json.Unmarshal(entry, &task); err != nil {
		return model.Task{}, err
	}

	task.ID = ""
	task.CreatedAt = time.Time{}
	task.UpdatedAt = time.Time{}

	if task.Status == "" {
		task.Status = model.StatusTodo
	}
	if !task.Status.Valid() {
		return model.Task{}, fmt.Errorf("unknown status %q", task.Status)
	}

	clean, err := validateInput(TaskInput{
		Title:       task.Title,
		Description: task.Description,
		Notes:       task.Notes,
		Category:    task.Category,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		StartTime:   task.StartTime,
		EndTime:     task.EndTime,
		Tags:        task.Tags,
		Recurring:   task.Recurring,
	}, now)
	if err != nil {
		return model.Task{}, err
	}
	task.Title = clean.Title
	task.Description = clean.Description
	task.Notes = clean.Notes
	task.Category = clean.Category
	task.Priority = clean.Priority
	task.DueDate = clean.DueDate
	task.StartTime = clean.StartTime
	task.EndTime = clean.EndTime
	task.Tags = model.Tags(clean.Tags)
	task.Recurring = clean.Recurring
	return task, nil
}
