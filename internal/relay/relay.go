// Package relay connects the bot front end to worker processes through a
// FIFO task queue and a publish/subscribe status channel.
//
// Delivery is at-most-once in both directions: a worker crash after pop
// loses the task, and status events are not replayed to disconnected
// subscribers. The surrounding automation assumes a human retries a
// lost run.
package relay

import (
	"context"
	"time"
)

// Queue key and status channel names shared by all processes.
const (
	TaskQueueKey  = "adw:tasks"
	StatusChannel = "adw:responses"
)

// StatusHandler is invoked once per received status event. Handlers on a
// single subscription run sequentially in arrival order.
type StatusHandler func(ctx context.Context, event *StatusEvent)

// Relay is the transport between the bot and workers.
type Relay interface {
	// PublishTask pushes a task onto the work queue. It returns false on
	// transport failure so the caller can tell the user the queue is
	// unavailable instead of propagating an error.
	PublishTask(ctx context.Context, task *Task) bool

	// PopTask blocks up to timeout for a task. A nil task with nil error
	// means nothing was available, the normal idle case.
	PopTask(ctx context.Context, timeout time.Duration) (*Task, error)

	// PublishStatus is best-effort: failures are logged, never returned.
	PublishStatus(ctx context.Context, event *StatusEvent)

	// SubscribeStatus delivers status events to handler until ctx is
	// cancelled.
	SubscribeStatus(ctx context.Context, handler StatusHandler) error

	Close() error
}
