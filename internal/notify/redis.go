package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Redis carries signals over a Redis pub/sub channel so that several
// processes sharing a store see each other's writes. Delivery is at most
// once.
type Redis struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(addr, channel string, log *zap.Logger) (*Redis, error) {
	if addr == "" {
		return nil, types.ErrRedisAddrEmpty
	}
	if channel == "" {
		channel = types.DefaultNotifyChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &Redis{rdb: rdb, channel: channel, log: log.With(zap.String("channel", channel))}, nil
}

// Publish sends c as JSON on the channel.
func (r *Redis) Publish(ctx context.Context, c types.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling change: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}

// Subscribe listens on the channel. The subscription is confirmed before
// it is returned. Malformed messages are reported on Errors and skipped.
func (r *Redis) Subscribe(ctx context.Context) (types.Subscription, error) {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	s, subCtx := newSubscription(ctx)
	go func() {
		defer s.finish()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var c types.Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					r.log.Debug("dropping malformed change", zap.Error(err))
					s.fail(subCtx, fmt.Errorf("decoding change: %w", err))
					continue
				}
				s.send(subCtx, c)
			}
		}
	}()
	return s, nil
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
