//go:build integration

package live

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func waitTopic(t *testing.T, got <-chan string, want string) {
	t.Helper()
	for {
		select {
		case topic := <-got:
			if topic == want {
				return
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("topic %q not delivered", want)
		}
	}
}

func TestRedisBroker(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer container.Terminate(ctx)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	defer client.Close()

	sender := NewRedisBroker(client, "test", nil)
	receiver := NewRedisBroker(client, "test", nil)
	defer receiver.Close()

	got := make(chan string, 8)
	require.NoError(t, receiver.Subscribe(func(topic string) { got <- topic }))

	require.NoError(t, sender.Publish(ctx, AnswersTopic("q1")))
	waitTopic(t, got, AnswersTopic("q1"))
}

func TestPostgresBroker(t *testing.T) {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stackit_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	broker := NewPostgresBroker(db, dsn, "test_live", nil)
	defer broker.Close()

	got := make(chan string, 8)
	require.NoError(t, broker.Subscribe(func(topic string) { got <- topic }))

	require.NoError(t, broker.Publish(ctx, NotificationsTopic("u1")))
	waitTopic(t, got, NotificationsTopic("u1"))

	hub, err := NewHub(NewPostgresBroker(db, dsn, "test_live", nil), nil, nil)
	require.NoError(t, err)
	defer hub.Close()

	n := 0
	sub := hub.Subscribe(ctx, TopicQuestions, func(context.Context) (any, error) {
		n++
		return n, nil
	})
	defer sub.Cancel()
	<-sub.C
	hub.Notify(ctx, TopicQuestions)
	select {
	case snap := <-sub.C:
		assert.Equal(t, 2, snap.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("no refresh through postgres")
	}
}
