package feed

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const channelName = "feed:events"

// RedisBus broadcasts events over a redis pub/sub channel so every backend
// instance sees every row change, not only the one that wrote it.
type RedisBus struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRedisBus(rdb *redis.Client, log *zap.Logger) *RedisBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBus{rdb: rdb, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelName, data).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(Event)) (func(), error) {
	pubsub := b.rdb.Subscribe(ctx, channelName)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	ch := pubsub.Channel()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn("feed event malformed", zap.Error(err))
					continue
				}
				fn(ev)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		pubsub.Close()
	}, nil
}
