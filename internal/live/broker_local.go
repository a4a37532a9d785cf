package live

import (
	"context"
	"errors"
	"sync"
)

var errBrokerClosed = errors.New("live broker closed")

// LocalBroker delivers notifications within the process. It is enough for a
// single instance.
type LocalBroker struct {
	mu       sync.RWMutex
	handlers []func(topic string)
	closed   bool
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{}
}

func (b *LocalBroker) Publish(_ context.Context, topic string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errBrokerClosed
	}
	for _, h := range b.handlers {
		h(topic)
	}
	return nil
}

func (b *LocalBroker) Subscribe(handler func(topic string)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errBrokerClosed
	}
	b.handlers = append(b.handlers, handler)
	return nil
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
