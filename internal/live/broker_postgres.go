package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const listenerPingInterval = 90 * time.Second

// PostgresBroker fans notifications out through LISTEN/NOTIFY on the shared
// database, so no extra infrastructure is needed for several instances.
type PostgresBroker struct {
	db      *gorm.DB
	dsn     string
	channel string
	logger  *zap.Logger

	mu       sync.Mutex
	listener *pq.Listener
	stop     chan struct{}
	done     chan struct{}
}

// NewPostgresBroker publishes through db and listens on a dedicated
// connection opened from dsn. channel is typically the table prefix + "live".
func NewPostgresBroker(db *gorm.DB, dsn, channel string, logger *zap.Logger) *PostgresBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresBroker{
		db:      db,
		dsn:     dsn,
		channel: channel,
		logger:  logger,
	}
}

func (b *PostgresBroker) Publish(ctx context.Context, topic string) error {
	if err := b.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", b.channel, topic).Error; err != nil {
		return fmt.Errorf("failed to notify %s: %w", b.channel, err)
	}
	return nil
}

func (b *PostgresBroker) Subscribe(handler func(topic string)) error {
	listener := pq.NewListener(b.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			b.logger.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(b.channel); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", b.channel, err)
	}

	b.mu.Lock()
	b.listener = listener
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	stop, done := b.stop, b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				if n == nil {
					// reconnected; anything sent meanwhile is lost
					handler(refreshAll)
					continue
				}
				handler(n.Extra)
			case <-ticker.C:
				go func() {
					if err := listener.Ping(); err != nil {
						b.logger.Warn("postgres listener ping failed", zap.Error(err))
					}
				}()
			}
		}
	}()

	b.logger.Info("Listening for live updates on Postgres", zap.String("channel", b.channel))
	return nil
}

func (b *PostgresBroker) Close() error {
	b.mu.Lock()
	listener, stop, done := b.listener, b.stop, b.done
	b.listener = nil
	b.mu.Unlock()

	if listener == nil {
		return nil
	}
	close(stop)
	<-done
	return listener.Close()
}
