package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"taskflow/internal/model"
)

var errGatewayDown = errors.New("gateway down")

// fakeGateway keeps tasks in memory and pushes snapshots synchronously.
type fakeGateway struct {
	mu      sync.Mutex
	seq     int
	tasks   []model.Task
	subs    map[int]func([]model.Task)
	nextSub int

	created   []model.Task
	updates   int
	failAfter int
}

func newFakeGateway(seed ...model.Task) *fakeGateway {
	g := &fakeGateway{subs: make(map[int]func([]model.Task)), failAfter: -1}
	for _, t := range seed {
		g.seq++
		if t.ID == "" {
			t.ID = g.id()
		}
		g.tasks = append([]model.Task{t}, g.tasks...)
	}
	return g
}

func (g *fakeGateway) id() string {
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", g.seq)
}

func (g *fakeGateway) Create(_ context.Context, task *model.Task) error {
	g.mu.Lock()
	if task.ID != "" {
		g.mu.Unlock()
		return fmt.Errorf("create task: id %q already set", task.ID)
	}
	if g.failAfter >= 0 && len(g.created) >= g.failAfter {
		g.mu.Unlock()
		return errGatewayDown
	}
	g.created = append(g.created, *task)
	g.seq++
	task.ID = g.id()
	g.tasks = append([]model.Task{*task}, g.tasks...)
	g.mu.Unlock()

	g.push()
	return nil
}

func (g *fakeGateway) Update(_ context.Context, id string, upd model.TaskUpdate) error {
	g.mu.Lock()
	found := false
	for i := range g.tasks {
		if g.tasks[i].ID != id {
			continue
		}
		found = true
		if upd.IfStatus != nil && *upd.IfStatus != g.tasks[i].Status {
			g.mu.Unlock()
			return model.ErrStatusChanged
		}
		upd.ApplyTo(&g.tasks[i])
	}
	if found {
		g.updates++
	}
	g.mu.Unlock()

	if !found {
		return model.ErrTaskNotFound
	}
	g.push()
	return nil
}

func (g *fakeGateway) Delete(_ context.Context, id string) error {
	g.mu.Lock()
	out := g.tasks[:0:0]
	for _, t := range g.tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	removed := len(out) != len(g.tasks)
	g.tasks = out
	g.mu.Unlock()

	if !removed {
		return model.ErrTaskNotFound
	}
	g.push()
	return nil
}

func (g *fakeGateway) Subscribe(_ context.Context, fn func([]model.Task)) (func(), error) {
	g.mu.Lock()
	key := g.nextSub
	g.nextSub++
	g.subs[key] = fn
	snapshot := g.snapshotLocked()
	g.mu.Unlock()

	fn(snapshot)
	return func() {
		g.mu.Lock()
		delete(g.subs, key)
		g.mu.Unlock()
	}, nil
}

// Sync has nothing to wait for: push delivers before a write returns.
func (g *fakeGateway) Sync(context.Context) error {
	return nil
}

func (g *fakeGateway) snapshotLocked() []model.Task {
	out := make([]model.Task, len(g.tasks))
	copy(out, g.tasks)
	return out
}

func (g *fakeGateway) push() {
	g.mu.Lock()
	snapshot := g.snapshotLocked()
	subs := make([]func([]model.Task), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}
