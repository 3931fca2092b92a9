package eventbus

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StreamPublisher appends events to a Redis stream. The stream is persisted
// by Redis, so events survive dispatcher restarts.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStreamPublisher trims the stream to roughly maxLen entries; 0 disables trimming.
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

func (p *StreamPublisher) Publish(ctx context.Context, ev NotificationEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}

	values, err := encode(ev)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.stream, err)
	}
	return nil
}
