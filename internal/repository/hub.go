package repository

import (
	"context"
	"sync"

	"taskflow/internal/model"
)

type snapshot struct {
	seq   uint64
	tasks []model.Task
}

// subscriber delivers snapshots on its own goroutine. The mailbox holds at
// most one pending snapshot; a newer one replaces it.
type subscriber struct {
	fn      func([]model.Task)
	mailbox chan snapshot
	done    chan struct{}
	once    sync.Once

	mu        sync.Mutex
	delivered uint64
	notify    chan struct{}
}

func newSubscriber(fn func([]model.Task), delivered uint64) *subscriber {
	s := &subscriber{
		fn:        fn,
		mailbox:   make(chan snapshot, 1),
		done:      make(chan struct{}),
		delivered: delivered,
		notify:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case snap := <-s.mailbox:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(snap.tasks)
			s.markDelivered(snap.seq)
		}
	}
}

func (s *subscriber) markDelivered(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.delivered {
		s.delivered = seq
	}
	close(s.notify)
	s.notify = make(chan struct{})
}

// waitFor returns once snapshot seq or a later one has been handled, or the
// subscriber is gone.
func (s *subscriber) waitFor(ctx context.Context, seq uint64) error {
	for {
		s.mu.Lock()
		if s.delivered >= seq {
			s.mu.Unlock()
			return nil
		}
		notify := s.notify
		s.mu.Unlock()

		select {
		case <-notify:
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *subscriber) offer(snap snapshot) {
	for {
		select {
		case s.mailbox <- snap:
			return
		default:
		}
		// Drop the stale snapshot and retry.
		select {
		case <-s.mailbox:
		default:
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans task snapshots out to subscribers. Every broadcast gets the next
// sequence number so writers can wait for delivery.
type Hub struct {
	mu   sync.Mutex
	seq  uint64
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Register starts delivery to fn, beginning with initial when it is non-nil.
// The returned func unregisters; calling it more than once is a no-op.
func (h *Hub) Register(fn func([]model.Task), initial []model.Task) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	var s *subscriber
	if initial == nil {
		s = newSubscriber(fn, h.seq)
	} else {
		s = newSubscriber(fn, 0)
		s.offer(snapshot{seq: h.seq, tasks: cloneTasks(initial)})
	}
	h.subs[s] = struct{}{}
	return func() { h.unregister(s) }
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.stop()
}

// Broadcast hands a snapshot to every subscriber. Each one gets its own copy
// of the slice.
func (h *Hub) Broadcast(tasks []model.Task) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	for s := range h.subs {
		s.offer(snapshot{seq: h.seq, tasks: cloneTasks(tasks)})
	}
}

// Wait blocks until every current subscriber has handled the latest
// broadcast.
func (h *Hub) Wait(ctx context.Context) error {
	h.mu.Lock()
	seq := h.seq
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		if err := s.waitFor(ctx, seq); err != nil {
			return err
		}
	}
	return nil
}

// Len is the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		t.Tags = t.Tags.Clone()
		out[i] = t
	}
	return out
}
