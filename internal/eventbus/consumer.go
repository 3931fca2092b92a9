package eventbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Handler processes one event. Returning an error leaves the message
// unacknowledged so it is claimed again after the idle timeout.
type Handler func(ctx context.Context, ev NotificationEvent) error

type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
	// MinIdle is how long a delivered message may stay unacknowledged before
	// another consumer of the group may claim it.
	MinIdle time.Duration
	Block   time.Duration
	Count   int64
}

// streamOps is the part of the Redis stream API the consumer drives.
type streamOps interface {
	createGroup(ctx context.Context) error
	read(ctx context.Context) ([]redis.XMessage, error)
	claim(ctx context.Context, start string) ([]redis.XMessage, string, error)
	ack(ctx context.Context, id string) error
}

type redisStream struct {
	client *redis.Client
	cfg    ConsumerConfig
}

func (s redisStream) createGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (s redisStream) read(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    s.cfg.Count,
		Block:    s.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var msgs []redis.XMessage
	for _, st := range streams {
		msgs = append(msgs, st.Messages...)
	}
	return msgs, nil
}

func (s redisStream) claim(ctx context.Context, start string) ([]redis.XMessage, string, error) {
	return s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.cfg.Stream,
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		MinIdle:  s.cfg.MinIdle,
		Start:    start,
		Count:    s.cfg.Count,
	}).Result()
}

func (s redisStream) ack(ctx context.Context, id string) error {
	return s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, id).Err()
}

// StreamConsumer reads a Redis stream as one member of a consumer group.
// Instances sharing a group compete for messages.
type StreamConsumer struct {
	stream streamOps
	cfg    ConsumerConfig
	log    logrus.FieldLogger
}

// NewStreamConsumer takes one message per read unless cfg.Count says
// otherwise, so competing consumers do not hold work they have not started.
func NewStreamConsumer(client *redis.Client, cfg ConsumerConfig, log logrus.FieldLogger) *StreamConsumer {
	cfg = withDefaults(cfg)
	return newConsumer(redisStream{client: client, cfg: cfg}, cfg, log)
}

func withDefaults(cfg ConsumerConfig) ConsumerConfig {
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}
	if cfg.Count <= 0 {
		cfg.Count = 1
	}
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = 30 * time.Second
	}
	return cfg
}

func newConsumer(stream streamOps, cfg ConsumerConfig, log logrus.FieldLogger) *StreamConsumer {
	return &StreamConsumer{
		stream: stream,
		cfg:    cfg,
		log: log.WithFields(logrus.Fields{
			"stream":   cfg.Stream,
			"group":    cfg.Group,
			"consumer": cfg.Consumer,
		}),
	}
}

// EnsureGroup creates the stream and the consumer group if needed.
func (c *StreamConsumer) EnsureGroup(ctx context.Context) error {
	if err := c.stream.createGroup(ctx); err != nil {
		return fmt.Errorf("create consumer group %s: %w", c.cfg.Group, err)
	}
	return nil
}

// Run consumes until ctx is cancelled. Messages abandoned by crashed or slow
// consumers are reclaimed before new ones are read.
func (c *StreamConsumer) Run(ctx context.Context, h Handler) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	c.log.Info("consumer started")
	for {
		if ctx.Err() != nil {
			c.log.Info("consumer stopped")
			return nil
		}

		if err := c.reclaim(ctx, h); err != nil && ctx.Err() == nil {
			c.log.WithError(err).Warn("reclaim pending messages failed")
		}

		if err := c.readNew(ctx, h); err != nil && ctx.Err() == nil {
			c.log.WithError(err).Error("read from stream failed")
			sleep(ctx, time.Second)
		}
	}
}

func (c *StreamConsumer) readNew(ctx context.Context, h Handler) error {
	msgs, err := c.stream.read(ctx)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		c.process(ctx, msg, h)
	}
	return nil
}

func (c *StreamConsumer) reclaim(ctx context.Context, h Handler) error {
	start := "0-0"
	for {
		msgs, next, err := c.stream.claim(ctx, start)
		if err != nil {
			return err
		}

		for _, msg := range msgs {
			c.log.WithField("message_id", msg.ID).Info("reclaimed unacknowledged message")
			c.process(ctx, msg, h)
		}

		if next == "0-0" || len(msgs) == 0 {
			return nil
		}
		start = next
	}
}

func (c *StreamConsumer) process(ctx context.Context, msg redis.XMessage, h Handler) {
	log := c.log.WithField("message_id", msg.ID)

	ev, err := decode(msg.Values)
	if err != nil {
		// a malformed message would be redelivered forever
		log.WithError(err).Error("dropping undecodable message")
		c.ack(ctx, msg.ID, log)
		return
	}

	if err := safeHandle(ctx, h, ev); err != nil {
		log.WithError(err).WithField("appointment_id", ev.AppointmentID).Warn("event not processed, leaving for redelivery")
		return
	}
	c.ack(ctx, msg.ID, log)
}

func safeHandle(ctx context.Context, h Handler, ev NotificationEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

func (c *StreamConsumer) ack(ctx context.Context, id string, log logrus.FieldLogger) {
	// processed work is acknowledged even while shutting down
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	if err := c.stream.ack(ackCtx, id); err != nil {
		log.WithError(err).Warn("ack failed, message will be redelivered")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
