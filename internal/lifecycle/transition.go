// Package lifecycle owns the task status graph: which moves are legal, what
// each move writes, and which follow-up task a recurring completion spawns.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/model"
)

var (
	// ErrInvalidTransition marks a move that is not an edge of the graph.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrPhotoRequired is returned when completing without a photo proof.
	ErrPhotoRequired = errors.New("completion photo required")
	// ErrInvalidDueDate is returned when a recurring task cannot be rescheduled.
	ErrInvalidDueDate = errors.New("invalid due date")
)

// TransitionError describes a rejected move.
type TransitionError struct {
	From model.Status
	To   model.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

var transitions = map[model.Status]map[model.Status]bool{
	model.StatusTodo:       {model.StatusInProgress: true},
	model.StatusInProgress: {model.StatusCompleted: true, model.StatusTodo: true},
	model.StatusCompleted:  {model.StatusTodo: true},
}

// CanTransition reports whether from -> to is an edge of the graph.
func CanTransition(from, to model.Status) bool {
	nexts, ok := transitions[from]
	if !ok {
		return false
	}
	return nexts[to]
}

// Targets lists the legal destinations from a status.
func Targets(from model.Status) []model.Status {
	var out []model.Status
	for _, to := range []model.Status{model.StatusTodo, model.StatusInProgress, model.StatusCompleted} {
		if CanTransition(from, to) {
			out = append(out, to)
		}
	}
	return out
}

// Next is the default one-click workflow: todo -> in-progress -> completed -> todo.
func Next(from model.Status) (model.Status, bool) {
	switch from {
	case model.StatusTodo:
		return model.StatusInProgress, true
	case model.StatusInProgress:
		return model.StatusCompleted, true
	case model.StatusCompleted:
		return model.StatusTodo, true
	}
	return "", false
}

// Outcome is what a successful move writes back: an update for the task and,
// for recurring completions, a new task to create separately.
type Outcome struct {
	TaskID string
	From   model.Status
	To     model.Status
	Update model.TaskUpdate
	Spawn  *model.Task
}

// Apply validates the move of task to status to and computes its effects. It
// never mutates task.
func Apply(task model.Task, to model.Status, photo string, now time.Time) (Outcome, error) {
	from := task.Status
	if !CanTransition(from, to) {
		return Outcome{}, &TransitionError{From: from, To: to}
	}

	out := Outcome{TaskID: task.ID, From: from, To: to}
	status := to
	out.Update.Status = &status
	out.Update.IfStatus = &from

	if to != model.StatusCompleted {
		out.Update.Completion = &model.Completion{}
		return out, nil
	}

	photo = strings.TrimSpace(photo)
	if photo == "" {
		return Outcome{}, ErrPhotoRequired
	}

	if task.Recurring.Active() {
		spawn, err := Spawn(task, now)
		if err != nil {
			return Outcome{}, err
		}
		out.Spawn = spawn
	}

	completedAt := now
	out.Update.Completion = &model.Completion{At: &completedAt, Photo: photo}
	return out, nil
}
