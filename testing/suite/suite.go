package suite

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const (
	expireSeconds   = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

// Suite is a throwaway Redis in docker for integration tests.
type Suite struct {
	*testing.T
	Logger *slog.Logger

	Redis *redis.Client
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// REDIS_ADDR points at an existing server and skips docker entirely.
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			t.Fatalf("redis at %s is not reachable: %v", addr, err)
		}
		if err := rdb.FlushDB(ctx).Err(); err != nil {
			t.Fatalf("could not flush database: %v", err)
		}
		t.Cleanup(func() { _ = rdb.Close() })
		return ctx, &Suite{T: t, Logger: logger, Redis: rdb}
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start redis container: %v", err)
	}

	// never returns error
	_ = resource.Expire(expireSeconds)

	pool.MaxWait = maxWaitDuration

	var rdb *redis.Client
	if err = pool.Retry(func() error {
		rdb = redis.NewClient(&redis.Options{Addr: resource.GetHostPort(redisPort)})
		return rdb.Ping(ctx).Err()
	}); err != nil {
		_ = pool.Purge(resource)
		t.Fatalf("could not connect to redis: %v", err)
	}

	t.Cleanup(func() {
		_ = rdb.Close()
		if err := pool.Purge(resource); err != nil {
			t.Errorf("could not purge redis container: %v", err)
		}
	})

	return ctx, &Suite{T: t, Logger: logger, Redis: rdb}
}
