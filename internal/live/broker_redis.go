package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker fans notifications out through Redis Pub/Sub. Every instance of
// a namespace listens on "<namespace>:live"; the payload is the topic.
type RedisBroker struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisBroker uses an existing client; the caller keeps ownership of it
func NewRedisBroker(client *redis.Client, namespace string, logger *zap.Logger) *RedisBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{
		client:  client,
		channel: namespace + ":live",
		logger:  logger,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string) error {
	if err := b.client.Publish(ctx, b.channel, topic).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", b.channel, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(handler func(topic string)) error {
	ctx := context.Background()
	pubsub := b.client.Subscribe(ctx, b.channel)

	// wait for the subscription confirmation so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	b.mu.Lock()
	b.pubsub = pubsub
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			handler(msg.Payload)
		}
		b.logger.Debug("redis live subscription closed", zap.String("channel", b.channel))
	}()

	b.logger.Info("Listening for live updates on Redis", zap.String("channel", b.channel))
	return nil
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub = nil
	b.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}
