package realtime

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bridge relays events published on redis training channels into the local
// hub. Publishing goes through redis rather than straight to the hub so
// that every API instance delivers to its own subscribers.
type Bridge struct {
	rdb    *redis.Client
	hub    *Hub
	prefix string
	logger *zap.Logger
}

// NewBridge constructs a bridge for the given channel prefix.
func NewBridge(rdb *redis.Client, hub *Hub, prefix string, logger *zap.Logger) *Bridge {
	if prefix == "" {
		prefix = "training"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{rdb: rdb, hub: hub, prefix: prefix, logger: logger}
}

// Channel returns the redis channel name for a training id.
func (b *Bridge) Channel(trainingID string) string {
	return b.prefix + "." + trainingID
}

// Publish sends the payload to the training's redis channel.
func (b *Bridge) Publish(ctx context.Context, trainingID string, payload []byte) error {
	return b.rdb.Publish(ctx, b.Channel(trainingID), payload).Err()
}

// Run pattern-subscribes to every training channel and forwards messages to
// the hub until the context is done. Redis pub/sub preserves per-channel
// publish order, and the hub's single broadcast loop preserves it onward.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.rdb.PSubscribe(ctx, b.prefix+".*")
	defer pubsub.Close() //nolint:errcheck

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			trainingID := strings.TrimPrefix(msg.Channel, b.prefix+".")
			if trainingID == "" || trainingID == msg.Channel {
				b.logger.Warn("realtime message on unexpected channel", zap.String("channel", msg.Channel))
				continue
			}
			b.hub.Broadcast(trainingID, []byte(msg.Payload))
		}
	}
}
