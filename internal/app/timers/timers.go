// Package timers runs deferred, cancelable continuations. Every task is
// registered under an entity key (for example "app:3") so deleting the entity
// can cancel whatever is still pending for it.
package timers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sarkhq/console/internal/app/metrics"
	"github.com/sarkhq/console/internal/app/system"
	"github.com/sarkhq/console/pkg/logger"
)

var _ system.Service = (*Scheduler)(nil)

// Func is a deferred continuation. The context is cancelled when the
// scheduler stops.
type Func func(ctx context.Context)

// Scheduler owns all pending deferred tasks.
type Scheduler struct {
	log *logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	nextID  uint64
	tasks   map[uint64]*task
	byKey   map[string]map[uint64]struct{}
	stopped bool
	wg      sync.WaitGroup
}

type task struct {
	id    uint64
	key   string
	timer *time.Timer
}

// Handle identifies one scheduled task.
type Handle struct {
	id uint64
	s  *Scheduler
}

// New creates a scheduler ready to accept tasks.
func New(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("timers")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[uint64]*task),
		byKey:  make(map[string]map[uint64]struct{}),
	}
}

// Key builds an entity key such as "app:3".
func Key(kind string, id any) string {
	return fmt.Sprintf("%s:%v", kind, id)
}

// After runs fn once after d unless cancelled first. A stopped scheduler
// returns a handle that is already cancelled.
func (s *Scheduler) After(key string, d time.Duration, fn Func) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Handle{}
	}
	s.nextID++
	id := s.nextID
	t := &task{id: id, key: key}
	s.tasks[id] = t
	if s.byKey[key] == nil {
		s.byKey[key] = make(map[uint64]struct{})
	}
	s.byKey[key][id] = struct{}{}
	t.timer = time.AfterFunc(d, func() { s.fire(id, fn) })
	metrics.SetPendingTimers(len(s.tasks))
	return Handle{id: id, s: s}
}

// Cancel stops the task if it has not fired yet and reports whether it did.
func (h Handle) Cancel() bool {
	if h.s == nil {
		return false
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.cancelLocked(h.id)
}

// Active reports whether the task is still pending.
func (h Handle) Active() bool {
	if h.s == nil {
		return false
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	_, ok := h.s.tasks[h.id]
	return ok
}

// Cancel cancels every pending task registered under key.
func (s *Scheduler) Cancel(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id := range s.byKey[key] {
		if s.cancelLocked(id) {
			n++
		}
	}
	if n > 0 {
		s.log.WithField("key", key).WithField("cancelled", n).Debug("deferred tasks cancelled")
	}
	return n
}

// CancelAll cancels every pending task but keeps the scheduler usable.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id := range s.tasks {
		if s.cancelLocked(id) {
			n++
		}
	}
	return n
}

// Pending returns the number of tasks waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Wait blocks until no task callback is running or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Name() string { return "timers" }

func (s *Scheduler) Start(context.Context) error { return nil }

// Stop cancels every pending task, refuses new ones and waits for running
// callbacks to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	for id := range s.tasks {
		s.cancelLocked(id)
	}
	s.mu.Unlock()

	s.cancel()
	if err := s.Wait(ctx); err != nil {
		return err
	}
	s.log.Info("deferred task scheduler stopped")
	return nil
}

func (s *Scheduler) fire(id uint64, fn Func) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	s.removeLocked(t)
	s.wg.Add(1)
	ctx := s.ctx
	s.mu.Unlock()

	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("key", t.key).WithField("panic", r).Error("deferred task panicked")
		}
	}()
	fn(ctx)
}

func (s *Scheduler) cancelLocked(id uint64) bool {
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	t.timer.Stop()
	s.removeLocked(t)
	return true
}

func (s *Scheduler) removeLocked(t *task) {
	delete(s.tasks, t.id)
	if ids := s.byKey[t.key]; ids != nil {
		delete(ids, t.id)
		if len(ids) == 0 {
			delete(s.byKey, t.key)
		}
	}
	metrics.SetPendingTimers(len(s.tasks))
}
