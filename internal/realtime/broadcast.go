package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/oggyb/muzz-match/internal/cache"
)

// DefaultChannel is the Redis pub/sub channel shared by all instances.
const DefaultChannel = "realtime:events"

// RedisBroadcaster shares events between server instances over Redis
// pub/sub. Each instance then delivers to its own connections.
type RedisBroadcaster struct {
	cache   *cache.RedisCache
	channel string
	log     *slog.Logger
}

func NewRedisBroadcaster(c *cache.RedisCache, channel string, log *slog.Logger) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroadcaster{cache: c, channel: channel, log: log.With("component", "broadcast")}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return b.cache.Publish(ctx, b.channel, payload)
}

// Run subscribes and hands every envelope to deliver until ctx is done.
func (b *RedisBroadcaster) Run(ctx context.Context, deliver func(Envelope)) error {
	sub := b.cache.Subscribe(ctx, b.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed before reading
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.log.Info("subscribed", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("dropping malformed envelope", "err", err)
				continue
			}
			deliver(env)
		}
	}
}
