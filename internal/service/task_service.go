package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"taskflow/internal/lifecycle"
	"taskflow/internal/model"
	"taskflow/internal/query"
)

// MinRefLength is the shortest id suffix Resolve accepts.
const MinRefLength = 6

// ErrAmbiguousRef is returned when a short reference matches several tasks.
var ErrAmbiguousRef = errors.New("task reference is ambiguous")

// Gateway is the task store the service reads from and writes to.
type Gateway interface {
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, id string, upd model.TaskUpdate) error
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context, fn func([]model.Task)) (func(), error)
	// Sync returns once subscribers have seen every completed write.
	Sync(ctx context.Context) error
}

// TaskInput is the editable part of a task as typed by a user.
type TaskInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Notes       string           `json:"notes"`
	Category    string           `json:"category"`
	Priority    model.Priority   `json:"priority"`
	DueDate     string           `json:"dueDate"`
	StartTime   string           `json:"startTime"`
	EndTime     string           `json:"endTime"`
	Tags        []string         `json:"tags"`
	Recurring   model.Recurrence `json:"recurring"`
}

// Transition reports a successful status move.
type Transition struct {
	Task    model.Task   `json:"task"`
	From    model.Status `json:"from"`
	To      model.Status `json:"to"`
	Spawned *model.Task  `json:"spawned,omitempty"`
}

// TaskService keeps the latest task snapshot pushed by the gateway and runs
// every user action against it.
type TaskService struct {
	gateway Gateway
	loc     *time.Location
	clock   func() time.Time

	mu          sync.RWMutex
	tasks       []model.Task
	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
	listeners   []func([]model.Task)
}

// Option tweaks a TaskService.
type Option func(*TaskService)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *TaskService) { s.clock = clock }
}

func NewTaskService(gateway Gateway, loc *time.Location, opts ...Option) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	s := &TaskService{
		gateway: gateway,
		loc:     loc,
		clock:   time.Now,
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the gateway and waits for the first snapshot.
func (s *TaskService) Start(ctx context.Context) error {
	unsubscribe, err := s.gateway.Subscribe(ctx, s.replace)
	if err != nil {
		return fmt.Errorf("subscribe tasks: %w", err)
	}
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the subscription.
func (s *TaskService) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// OnChange registers fn to run after every snapshot swap.
func (s *TaskService) OnChange(fn func([]model.Task)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *TaskService) replace(tasks []model.Task) {
	s.mu.Lock()
	s.tasks = tasks
	listeners := append([]func([]model.Task){}, s.listeners...)
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	for _, fn := range listeners {
		fn(tasks)
	}
}

// Now is the service clock in the configured location.
func (s *TaskService) Now() time.Time {
	return s.clock().In(s.loc)
}

func (s *TaskService) Location() *time.Location {
	return s.loc
}

// Snapshot returns a copy of the current collection.
func (s *TaskService) Snapshot() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Find looks a task up by its full id.
func (s *TaskService) Find(id string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, task := range s.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return model.Task{}, model.ErrTaskNotFound
}

// Resolve accepts a full id or a unique id suffix of at least MinRefLength
// characters.
func (s *TaskService) Resolve(ref string) (model.Task, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if task, err := s.Find(ref); err == nil {
		return task, nil
	}
	if len(ref) < MinRefLength {
		return model.Task{}, model.ErrTaskNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []model.Task
	for _, task := range s.tasks {
		if strings.HasSuffix(task.ID, ref) {
			found = append(found, task)
		}
	}
	switch len(found) {
	case 0:
		return model.Task{}, model.ErrTaskNotFound
	case 1:
		return found[0], nil
	}
	return model.Task{}, fmt.Errorf("%w: %q matches %d tasks", ErrAmbiguousRef, ref, len(found))
}

// CreateTask validates input and stores a new todo task.
func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	clean, err := validateInput(input, s.Now())
	if err != nil {
		return nil, err
	}

	task := model.Task{
		Title:       clean.Title,
		Description: clean.Description,
		Notes:       clean.Notes,
		Category:    clean.Category,
		Status:      model.StatusTodo,
		Priority:    clean.Priority,
		DueDate:     clean.DueDate,
		StartTime:   clean.StartTime,
		EndTime:     clean.EndTime,
		Tags:        model.Tags(clean.Tags),
		Recurring:   clean.Recurring,
	}
	if err := s.gateway.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.await(ctx)
	return &task, nil
}

// EditTask replaces the editable fields of a task. Status and completion
// data are left alone.
func (s *TaskService) EditTask(ctx context.Context, id string, input TaskInput) (*model.Task, error) {
	task, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	clean, err := validateInput(input, s.Now())
	if err != nil {
		return nil, err
	}

	tags := model.Tags(clean.Tags)
	upd := model.TaskUpdate{
		Title:       &clean.Title,
		Description: &clean.Description,
		Notes:       &clean.Notes,
		Category:    &clean.Category,
		Priority:    &clean.Priority,
		DueDate:     &clean.DueDate,
		StartTime:   &clean.StartTime,
		EndTime:     &clean.EndTime,
		Tags:        &tags,
		Recurring:   &clean.Recurring,
	}
	if err := s.gateway.Update(ctx, id, upd); err != nil {
		return nil, err
	}
	s.await(ctx)
	upd.ApplyTo(&task)
	return &task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.Find(id); err != nil {
		return err
	}
	if err := s.gateway.Delete(ctx, id); err != nil {
		return err
	}
	s.await(ctx)
	return nil
}

// Move runs one transition. A recurring completion also creates the
// follow-up task; the original stays completed even if that create fails.
func (s *TaskService) Move(ctx context.Context, id string, to model.Status, photo string) (*Transition, error) {
	task, err := s.Find(id)
	if err != nil {
		return nil, err
	}

	out, err := lifecycle.Apply(task, to, photo, s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.gateway.Update(ctx, id, out.Update); err != nil {
		if errors.Is(err, model.ErrStatusChanged) {
			// Someone moved the task first; report the move from its new status.
			s.await(ctx)
			if current, ferr := s.Find(id); ferr == nil {
				return nil, &lifecycle.TransitionError{From: current.Status, To: to}
			}
			return nil, fmt.Errorf("%w: %w", lifecycle.ErrInvalidTransition, err)
		}
		return nil, err
	}
	s.await(ctx)
	out.Update.ApplyTo(&task)

	res := &Transition{Task: task, From: out.From, To: out.To}
	if out.Spawn != nil {
		if err := s.gateway.Create(ctx, out.Spawn); err != nil {
			return res, fmt.Errorf("create next occurrence: %w", err)
		}
		s.await(ctx)
		res.Spawned = out.Spawn
	}
	return res, nil
}

// await waits until the snapshot carries the writes made so far, so the next
// call sees them. The write itself already succeeded, so a failure is only
// logged.
func (s *TaskService) await(ctx context.Context) {
	if err := s.gateway.Sync(ctx); err != nil {
		log.Printf("[service] wait for snapshot: %v", err)
	}
}

// Advance moves a task one step along todo -> in-progress -> completed ->
// todo. Completing needs a photo, so that step returns ErrPhotoRequired and
// the caller must use Complete.
func (s *TaskService) Advance(ctx context.Context, id string) (*Transition, error) {
	task, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	next, ok := lifecycle.Next(task.Status)
	if !ok {
		return nil, &lifecycle.TransitionError{From: task.Status, To: model.StatusTodo}
	}
	if next == model.StatusCompleted {
		return nil, lifecycle.ErrPhotoRequired
	}
	return s.Move(ctx, id, next, "")
}

// Complete finishes a task with photo as proof.
func (s *TaskService) Complete(ctx context.Context, id, photo string) (*Transition, error) {
	return s.Move(ctx, id, model.StatusCompleted, photo)
}

// CompleteWithCapture asks src for the proof photo and then completes. A
// cancelled capture changes nothing.
func (s *TaskService) CompleteWithCapture(ctx context.Context, id string, src PhotoSource) (*Transition, error) {
	task, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanTransition(task.Status, model.StatusCompleted) {
		return nil, &lifecycle.TransitionError{From: task.Status, To: model.StatusCompleted}
	}

	photo, err := src.CapturePhoto(ctx, task)
	if err != nil {
		if errors.Is(err, ErrCaptureCancelled) {
			return nil, ErrCaptureCancelled
		}
		return nil, fmt.Errorf("capture photo: %w", err)
	}
	return s.Complete(ctx, id, photo)
}

func (s *TaskService) Query(view query.View) query.Result {
	return query.Execute(s.Snapshot(), view, s.Now())
}

func (s *TaskService) Board(view query.View) []query.Column {
	return query.Board(s.Snapshot(), view, s.Now())
}

func (s *TaskService) Month(year int, month time.Month) query.Calendar {
	return query.Month(s.Snapshot(), year, month, s.Now())
}

func (s *TaskService) Dashboard() query.Dashboard {
	return query.Analytics(s.Snapshot(), s.Now())
}

// TasksOn lists the tasks due on date (YYYY-MM-DD).
func (s *TaskService) TasksOn(date string) ([]model.Task, error) {
	date = strings.TrimSpace(date)
	if _, err := model.ParseDate(date, s.loc); err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	return query.OnDate(s.Snapshot(), date, s.loc), nil
}
