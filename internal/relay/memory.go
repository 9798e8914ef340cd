package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	memoryQueueDepth  = 256
	statusBufferDepth = 256
)

// MemoryRelay is an in-process Relay used in tests and single-process
// deployments. Semantics mirror RedisRelay: FIFO tasks, fan-out status
// events dropped for slow subscribers.
type MemoryRelay struct {
	tasks chan *Task

	mu          sync.RWMutex
	subscribers map[string]chan *StatusEvent
	closed      bool
}

func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{
		tasks:       make(chan *Task, memoryQueueDepth),
		subscribers: make(map[string]chan *StatusEvent),
	}
}

func (m *MemoryRelay) PublishTask(ctx context.Context, task *Task) bool {
	if err := task.Validate(); err != nil {
		slog.Error("refusing to publish invalid task", "task_id", task.TaskID, "error", err)
		return false
	}
	select {
	case m.tasks <- task:
		return true
	default:
		slog.Error("task queue full", "task_id", task.TaskID)
		return false
	}
}

func (m *MemoryRelay) PopTask(ctx context.Context, timeout time.Duration) (*Task, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case task := <-m.tasks:
		return task, nil
	}
}

func (m *MemoryRelay) PublishStatus(_ context.Context, event *StatusEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}

func (m *MemoryRelay) SubscribeStatus(ctx context.Context, handler StatusHandler) error {
	id := ulid.Make().String()
	ch := make(chan *StatusEvent, statusBufferDepth)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.subscribers[id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			handler(ctx, event)
		}
	}
}

func (m *MemoryRelay) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
