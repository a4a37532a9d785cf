// Package live implements live queries: a subscriber gets a full snapshot of
// a query result immediately and again after every change published on the
// query's topic.
package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
)

// refreshAll is delivered by brokers that may have missed messages
const refreshAll = ""

// Snapshot is one full result of a live query
type Snapshot struct {
	Topic   string    `json:"topic"`
	Version uint64    `json:"version"`
	Data    any       `json:"data"`
	At      time.Time `json:"at"`
}

// FetchFunc runs the query behind a subscription
type FetchFunc func(ctx context.Context) (any, error)

// Broker carries change notifications between the instances of a deployment
type Broker interface {
	// Publish announces a change on topic
	Publish(ctx context.Context, topic string) error

	// Subscribe registers the handler of every published topic. It returns
	// once the broker is listening.
	Subscribe(handler func(topic string)) error

	Close() error
}

// Hub fans change notifications out to the subscriptions of this instance
type Hub struct {
	broker  Broker
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub(broker Broker, logger *zap.Logger, m *metrics.Metrics) (*Hub, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		broker:  broker,
		logger:  logger.Named("live"),
		metrics: m,
		subs:    make(map[string]map[*Subscription]struct{}),
	}
	if err := broker.Subscribe(h.dispatch); err != nil {
		return nil, err
	}
	return h, nil
}

// Notify publishes a change on every topic. Failures are logged; the write
// that caused the change has already committed.
func (h *Hub) Notify(ctx context.Context, topics ...string) {
	for _, topic := range topics {
		if err := h.broker.Publish(ctx, topic); err != nil {
			h.logger.Warn("failed to publish live update", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// Subscribe starts a live query on topic. The subscription ends when ctx is
// done or Cancel is called; C is closed afterwards.
func (h *Hub) Subscribe(ctx context.Context, topic string, fetch FetchFunc) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot)
	s := &Subscription{
		C:      out,
		topic:  topic,
		hub:    h,
		kick:   make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	set, ok := h.subs[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[topic] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	h.metrics.SubscriberAdded()

	go s.run(ctx, out, fetch)
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.topic]; ok {
		if _, found := set[s]; !found {
			return
		}
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.topic)
		}
		h.metrics.SubscriberRemoved()
	}
}

func (h *Hub) dispatch(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if topic == refreshAll {
		for _, set := range h.subs {
			for s := range set {
				s.refresh()
			}
		}
		return
	}
	for s := range h.subs[topic] {
		s.refresh()
	}
}

// Subscribers returns the number of open subscriptions on topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

// Close cancels every subscription and closes the broker
func (h *Hub) Close() error {
	h.mu.Lock()
	var all []*Subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Cancel()
	}
	return h.broker.Close()
}

// Subscription is one running live query
type Subscription struct {
	// C receives a snapshot right away and after every change
	C <-chan Snapshot

	topic  string
	hub    *Hub
	kick   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

// refresh marks the subscription stale; pending refreshes coalesce into one
func (s *Subscription) refresh() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Subscription) run(ctx context.Context, out chan<- Snapshot, fetch FetchFunc) {
	defer close(s.done)
	defer close(out)
	defer s.hub.remove(s)

	var version uint64
	for {
		data, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, apperr.ErrNotFound) {
				// the queried entity is gone; no later change can bring it back
				s.err = err
				return
			}
			s.hub.logger.Warn("live query failed", zap.String("topic", s.topic), zap.Error(err))
		} else {
			version++
			snap := Snapshot{Topic: s.topic, Version: version, Data: data, At: time.Now().UTC()}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-s.kick:
		case <-ctx.Done():
			return
		}
	}
}

// Cancel ends the subscription and waits until C is closed. It is safe to
// call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Err returns the error that ended the subscription, or nil when it was
// cancelled. It is only meaningful once C is closed.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}

// Topic returns the topic of the subscription
func (s *Subscription) Topic() string {
	return s.topic
}
