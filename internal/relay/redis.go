package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRelay implements Relay on a Redis list plus a pub/sub channel.
type RedisRelay struct {
	client *redis.Client
}

func NewRedisRelay(ctx context.Context, redisURL string) (*RedisRelay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisRelay{client: client}, nil
}

func (r *RedisRelay) PublishTask(ctx context.Context, task *Task) bool {
	if err := task.Validate(); err != nil {
		slog.Error("refusing to publish invalid task", "task_id", task.TaskID, "error", err)
		return false
	}
	data, err := json.Marshal(task)
	if err != nil {
		slog.Error("failed to marshal task", "task_id", task.TaskID, "error", err)
		return false
	}
	if err := r.client.LPush(ctx, TaskQueueKey, data).Err(); err != nil {
		slog.Error("failed to publish task", "task_id", task.TaskID, "error", err)
		return false
	}
	slog.Info("published task", "task_id", task.TaskID, "operation", task.Operation)
	return true
}

func (r *RedisRelay) PopTask(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := r.client.BRPop(ctx, timeout, TaskQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop task: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(result))
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to decode task payload: %w", err)
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task payload: %w", err)
	}
	return &task, nil
}

func (r *RedisRelay) PublishStatus(ctx context.Context, event *StatusEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal status event", "task_id", event.TaskID, "error", err)
		return
	}
	if err := r.client.Publish(ctx, StatusChannel, data).Err(); err != nil {
		slog.Error("failed to publish status event", "task_id", event.TaskID, "error", err)
	}
}

func (r *RedisRelay) SubscribeStatus(ctx context.Context, handler StatusHandler) error {
	pubsub := r.client.Subscribe(ctx, StatusChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", StatusChannel, err)
	}
	slog.Info("subscribed to status channel", "channel", StatusChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Error("failed to decode status event", "error", err)
				continue
			}
			handler(ctx, &event)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
