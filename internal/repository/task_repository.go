package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

// TaskRepository stores tasks in SQL and pushes the full collection to
// subscribers after every successful write.
type TaskRepository struct {
	db  *gorm.DB
	hub *Hub

	// publishMu orders list-then-broadcast so a later push never carries an
	// older state.
	publishMu sync.Mutex
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db, hub: NewHub()}
}

// Create inserts a new task and assigns its id.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.ID != "" {
		return fmt.Errorf("create task: id %q already set", task.ID)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate task id: %w", err)
	}
	task.ID = id.String()
	if task.Tags == nil {
		task.Tags = model.Tags{}
	}

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		task.ID = ""
		return fmt.Errorf("create task: %w", err)
	}
	r.publish(ctx)
	return nil
}

// Update writes the set fields of upd to the task with id.
func (r *TaskRepository) Update(ctx context.Context, id string, upd model.TaskUpdate) error {
	if upd.Empty() {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return nil
	}

	q := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id)
	if upd.IfStatus != nil {
		q = q.Where("status = ?", string(*upd.IfStatus))
	}
	res := q.Updates(upd.Columns())
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if upd.IfStatus == nil {
			return model.ErrTaskNotFound
		}
		current, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: expected %s, found %s", model.ErrStatusChanged, *upd.IfStatus, current.Status)
	}
	r.publish(ctx)
	return nil
}

// Delete removes the task with id for good.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrTaskNotFound
	}
	r.publish(ctx)
	return nil
}

// List returns every task, newest first.
func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	tasks := []model.Task{}
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, model.ErrTaskNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// Subscribe delivers the current collection to fn right away and again after
// every write, until the returned func is called.
func (r *TaskRepository) Subscribe(ctx context.Context, fn func([]model.Task)) (func(), error) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	tasks, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return r.hub.Register(fn, tasks), nil
}

// Sync blocks until every subscriber has been handed the collection as it
// stood after the last completed write. Subscriber callbacks must not call
// Sync themselves.
func (r *TaskRepository) Sync(ctx context.Context) error {
	return r.hub.Wait(ctx)
}

// publish reloads the collection after a committed write. The write already
// happened, so a cancelled caller context must not stop the refresh.
func (r *TaskRepository) publish(ctx context.Context) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	if r.hub.Len() == 0 {
		return
	}
	tasks, err := r.List(context.WithoutCancel(ctx))
	if err != nil {
		log.Printf("[repository] refresh after write failed: %v", err)
		return
	}
	r.hub.Broadcast(tasks)
}
