package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sand/api/internal/tasks"
)

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Producer appends tasks to a redis stream.
type Producer struct {
	client streamAdder
	stream string
}

func NewProducer(client streamAdder, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

func (p *Producer) Enqueue(ctx context.Context, task tasks.Task) error {
	if _, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: task.Values(),
	}).Result(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}
