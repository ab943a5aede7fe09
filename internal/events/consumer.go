package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler processes one decoded event. A returned error leaves the message
// pending so it is redelivered.
type Handler func(ctx context.Context, stream string, e Event) error

type ConsumerConfig struct {
	Group         string
	Consumer      string
	Streams       []string
	BatchSize     int64
	BlockDuration time.Duration
}

// Consumer drains one or more streams through a consumer group.
type Consumer struct {
	client  *redis.Client
	cfg     ConsumerConfig
	handler Handler
	logger  *zap.SugaredLogger
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig, handler Handler, logger *zap.SugaredLogger) *Consumer {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.BlockDuration == 0 {
		cfg.BlockDuration = 5 * time.Second
	}
	if handler == nil {
		handler = LogHandler(logger)
	}
	return &Consumer{client: client, cfg: cfg, handler: handler, logger: logger}
}

// LogHandler records each event at debug level.
func LogHandler(logger *zap.SugaredLogger) Handler {
	return func(_ context.Context, stream string, e Event) error {
		logger.Debugw("event received", "stream", stream, "type", e.Type, "ts", e.Timestamp, "data", e.Data)
		return nil
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for _, stream := range c.cfg.Streams {
		err := c.client.XGroupCreateMkStream(ctx, stream, c.cfg.Group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return err
		}
	}
	c.logger.Infow("event consumer started", "streams", c.cfg.Streams, "group", c.cfg.Group, "consumer", c.cfg.Consumer)

	for {
		select {
		case <-ctx.Done():
			c.logger.Infow("event consumer stopping")
			return ctx.Err()
		default:
		}
		if err := c.readOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warnw("read events failed", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Consumer) readOnce(ctx context.Context) error {
	streams := make([]string, 0, 2*len(c.cfg.Streams))
	streams = append(streams, c.cfg.Streams...)
	for range c.cfg.Streams {
		streams = append(streams, ">")
	}
	res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  streams,
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.BlockDuration,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, s := range res {
		for _, msg := range s.Messages {
			e, err := decode(msg.Values)
			if err == nil {
				err = c.handler(ctx, s.Stream, e)
			}
			if err != nil {
				c.logger.Warnw("event not processed", "stream", s.Stream, "id", msg.ID, "err", err)
				continue
			}
			if err := c.client.XAck(ctx, s.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
				c.logger.Warnw("ack failed", "stream", s.Stream, "id", msg.ID, "err", err)
			}
		}
	}
	return nil
}
