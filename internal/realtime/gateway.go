package realtime

import (
	"context"
	"log/slog"

	"github.com/oggyb/muzz-match/internal/db"
)

// Broadcaster carries envelopes to every gateway instance, including the
// publishing one.
type Broadcaster interface {
	Publish(ctx context.Context, env Envelope) error
	Run(ctx context.Context, deliver func(Envelope)) error
}

// Gateway fans events out to the connections in its Registry.
//
// Delivery is fire-and-forget: no retries, no queueing for absent users.
// A user without connections simply misses the push and catches up on the
// next synchronous fetch.
type Gateway struct {
	registry    Registry
	broadcaster Broadcaster
	log         *slog.Logger
}

type GatewayOption func(*Gateway)

// WithBroadcaster routes every event through b instead of delivering
// locally, so all instances see it.
func WithBroadcaster(b Broadcaster) GatewayOption {
	return func(g *Gateway) { g.broadcaster = b }
}

func NewGateway(registry Registry, log *slog.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{registry: registry, log: log.With("component", "realtime")}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Registry exposes the presence registry transports bind connections to.
func (g *Gateway) Registry() Registry { return g.registry }

// Deliver pushes a stored message to every connection of its sender and
// receiver.
func (g *Gateway) Deliver(ctx context.Context, msg db.Message) {
	ev, err := MessageEvent(msg)
	if err != nil {
		g.log.Error("encode message event", "message_id", msg.ID, "err", err)
		return
	}
	g.dispatch(ctx, Envelope{UserIDs: []uint64{msg.SenderID, msg.ReceiverID}, Event: ev})
}

// Notify pushes ev to every connection of userID.
func (g *Gateway) Notify(ctx context.Context, userID uint64, ev Event) {
	g.dispatch(ctx, Envelope{UserIDs: []uint64{userID}, Event: ev})
}

func (g *Gateway) dispatch(ctx context.Context, env Envelope) {
	if g.broadcaster != nil {
		err := g.broadcaster.Publish(ctx, env)
		if err == nil {
			return
		}
		g.log.Warn("broadcast failed, delivering locally", "event", env.Event.Type, "err", err)
	}
	g.FanOut(env)
}

// FanOut delivers env to this instance's connections only.
func (g *Gateway) FanOut(env Envelope) {
	seen := make(map[uint64]struct{}, len(env.UserIDs))
	for _, userID := range env.UserIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		conns := g.registry.ConnectionsFor(userID)
		if len(conns) == 0 {
			g.log.Debug("delivery miss", "user_id", userID, "event", env.Event.Type)
			continue
		}
		for _, c := range conns {
			if err := c.Push(env.Event); err != nil {
				g.log.Warn("push failed", "user_id", userID, "conn", c.ID(), "event", env.Event.Type, "err", err)
			}
		}
	}
}

// Run consumes the broadcaster until ctx ends. Without a broadcaster it
// just waits for ctx.
func (g *Gateway) Run(ctx context.Context) error {
	if g.broadcaster == nil {
		<-ctx.Done()
		return nil
	}
	return g.broadcaster.Run(ctx, g.FanOut)
}
