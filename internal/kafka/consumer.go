package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// MessageReader is the part of *kafka.Reader the consumer uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageHandler processes one notification event
type MessageHandler func(ctx context.Context, n *models.Notification) error

type Consumer struct {
	reader MessageReader
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer joins the configured consumer group
func NewConsumer(cfg config.KafkaConfig, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})
	return NewConsumerWithReader(reader, logger)
}

func NewConsumerWithReader(r MessageReader, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: r, logger: logger.Named("kafka")}
}

// Start consumes in the background until Stop is called
func (c *Consumer) Start(handler MessageHandler) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx, handler)
	}()
	c.logger.Info("Kafka notification consumer started")
}

func (c *Consumer) consume(ctx context.Context, handler MessageHandler) {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			c.logger.Warn("failed to read message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var n models.Notification
		if err := json.Unmarshal(m.Value, &n); err != nil {
			c.logger.Warn("dropping malformed notification event",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		} else if err := handler(ctx, &n); err != nil {
			c.logger.Error("failed to handle notification event",
				zap.String("user_id", n.UserID),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Warn("failed to commit offset", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// Stop ends consumption and closes the reader
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("Kafka notification consumer stopped")
	return c.reader.Close()
}
