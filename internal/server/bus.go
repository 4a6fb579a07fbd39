// Package server bridges broadcasts between hub instances through Redis
// pub/sub, so clients connected to different processes still see each
// other's messages. Delivery is best effort, same as local fan-out.
package server

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const busChannel = "webchat:frames"

// busFrame wraps a broadcast payload with the id of the publishing instance
// so subscribers can drop their own traffic.
type busFrame struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// FanoutBus publishes encoded frames to a shared Redis channel and delivers
// frames published by other instances.
type FanoutBus struct {
	rdb      *redis.Client
	instance string
}

// NewFanoutBus connects to Redis and verifies connectivity.
func NewFanoutBus(ctx context.Context, addr string) (*FanoutBus, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &FanoutBus{rdb: rdb, instance: uuid.NewString()}, nil
}

// Publish sends one already-encoded frame to the shared channel.
func (b *FanoutBus) Publish(ctx context.Context, raw []byte) {
	frame, err := json.Marshal(busFrame{Origin: b.instance, Payload: raw})
	if err != nil {
		logger.Errorf("Failed to encode bus frame: %v", err)
		return
	}
	if err := b.rdb.Publish(ctx, busChannel, frame).Err(); err != nil {
		logger.Warnf("Bus publish failed: %v", err)
	}
}

// Subscribe delivers frames published by other instances to fn until ctx is
// cancelled.
func (b *FanoutBus) Subscribe(ctx context.Context, fn func([]byte)) {
	pubsub := b.rdb.Subscribe(ctx, busChannel)
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame busFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				logger.Warnf("Dropping undecodable bus frame: %v", err)
				continue
			}
			if frame.Origin == b.instance || len(frame.Payload) == 0 {
				continue
			}
			fn(frame.Payload)
		}
	}
}

// Close shuts down the Redis connection.
func (b *FanoutBus) Close() {
	_ = b.rdb.Close()
}
