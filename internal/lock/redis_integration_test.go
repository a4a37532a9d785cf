//go:build integration

package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/emilythestrangee/stackit/backend/internal/config"
)

func startRedis(t *testing.T) string {
	t.Helper()
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
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisLocker(t *testing.T) {
	client, err := NewRedisClient(config.RedisConfig{Address: startRedis(t), Timeout: 3 * time.Second})
	require.NoError(t, err)
	defer client.Close()

	locker := NewRedisLocker(client, "test", time.Second, nil)
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "answer-1")
			if !assert.NoError(t, err) {
				return
			}
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)

	release, err := locker.Acquire(ctx, "held")
	require.NoError(t, err)
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(short, "held")
	assert.ErrorIs(t, err, ErrNotAcquired)
	release()

	exists, err := client.Exists(ctx, "test:lock:held").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
