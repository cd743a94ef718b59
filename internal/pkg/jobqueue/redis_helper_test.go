package jobqueue

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/BlockFox/internal/pkg/cache"
	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

const isolatedJobQueueTestRedisDB = 14

type redisEndpoint struct {
	host, port, password string
}

func (e redisEndpoint) addr() string {
	return fmt.Sprintf("%s:%s", e.host, e.port)
}

// testRedisCandidates lists the configured endpoint first, then the compose
// service names and localhost.
func testRedisCandidates() []redisEndpoint {
	port := env.GetEnv("CACHE_PORT", "6379")
	password := env.GetEnv("CACHE_PASSWORD", "")

	seen := map[redisEndpoint]bool{}
	var out []redisEndpoint
	for _, host := range []string{env.GetEnv("CACHE_HOST", ""), "cache", "blockfox-cache", "localhost", "127.0.0.1"} {
		if host == "" {
			continue
		}
		for _, e := range []redisEndpoint{{host, port, password}, {host, "6379", password}, {host, port, ""}} {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// resolveTestRedis returns the first reachable endpoint or skips the test.
func resolveTestRedis(t *testing.T) (string, string, string) {
	t.Helper()

	var lastErr error
	for _, e := range testRedisCandidates() {
		client := redis.NewClient(&redis.Options{Addr: e.addr(), Password: e.password})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		_ = client.Close()
		if lastErr == nil {
			return e.host, e.port, e.password
		}
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return "", "", ""
}

func configureTestCache(host, port, password string) {
	if env.Env == nil {
		env.Env = map[string]string{}
	}
	for key, value := range map[string]string{"CACHE_HOST": host, "CACHE_PORT": port, "CACHE_PASSWORD": password} {
		env.Env[key] = value
		_ = os.Setenv(key, value)
	}
	cache.SetupCache()
}

// resetJobQueueRedis removes every queue key from the shared cache client.
func resetJobQueueRedis(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	client := cache.GetClient()
	keys := []string{JobQueueKey, JobProcessingKey, JobStatsKey}

	iter := client.Scan(ctx, 0, JobKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		t.Fatalf("failed to scan redis keys: %v", err)
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		t.Fatalf("failed to cleanup redis keys: %v", err)
	}
}

// newIsolatedRedisClient connects to a flushed database of its own so queue
// tests do not see each other's keys.
func newIsolatedRedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	host, port, password := resolveTestRedis(t)
	client := redis.NewClient(&redis.Options{
		Addr:     redisEndpoint{host, port, password}.addr(),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: isolated DB ping failed (%v)", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to flush isolated redis db %d: %v", db, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}
