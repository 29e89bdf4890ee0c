// Package testing holds helpers shared by the integration tests.
package testing

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

// RedisClient returns a client of the redis at REDIS_HOST, or of a throwaway
// redis container when REDIS_HOST is not set. The database is flushed before
// it is handed out and the client is closed when the test ends.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	addr := redisAddr(t)
	t.Logf("using redis at: [%s]", addr)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASS"),
		DB:       0,
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	pingRes, err := rdb.Ping(ctx).Result()
	require.NoError(t, err)
	t.Logf("redis ping res: %s", pingRes)

	require.NoError(t, rdb.FlushDB(ctx).Err())
	return rdb
}

func redisAddr(t *testing.T) string {
	t.Helper()

	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		return net.JoinHostPort(host, port)
	}

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	require.NoError(t, pool.Client.Ping())

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purge redis container: %s", err)
		}
	})
	require.NoError(t, resource.Expire(120))

	addr := resource.GetHostPort("6379/tcp")
	require.NoError(t, pool.Retry(func() error {
		return redis.NewClient(&redis.Options{Addr: addr}).Ping(context.Background()).Err()
	}))
	return addr
}
