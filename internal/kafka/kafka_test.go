package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader serves queued messages, then blocks until ctx is done
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestProducer_SendNotification(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w)

	n := models.Notification{ID: "n1", UserID: "u1", Message: "hello", Link: "/question/q1"}
	require.NoError(t, p.SendNotification(context.Background(), n))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("u1"), w.msgs[0].Key)

	var decoded models.Notification
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, n.Message, decoded.Message)
	assert.Equal(t, n.Link, decoded.Link)

	w.err = errors.New("leader not available")
	assert.Error(t, p.SendNotification(context.Background(), n))
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	good, err := json.Marshal(models.Notification{ID: "n1", UserID: "u1", Message: "m"})
	require.NoError(t, err)

	r := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: good},
		{Offset: 2, Value: []byte("{not json")},
		{Offset: 3, Value: good},
	}}
	c := NewConsumerWithReader(r, nil)

	var mu sync.Mutex
	var handled []string
	c.Start(func(_ context.Context, n *models.Notification) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, n.ID)
		if len(handled) == 2 {
			return errors.New("db down")
		}
		return nil
	})

	require.Eventually(t, func() bool { return r.commits() == 3 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, c.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"n1", "n1"}, handled)
	assert.True(t, r.closed)
}
