// Package cache holds the shared Redis client used for job queues, usage
// counters, rate limits and RPC health snapshots.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

var client *redis.Client

// SetupCache connects to the Redis compatible server from CACHE_* settings.
// A failed ping is logged, not fatal, since go-redis reconnects lazily.
func SetupCache() {
	client = redis.NewClient(&redis.Options{
		Addr:     Addr(),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("[Cache] Could not connect to %s: %v", Addr(), err)
		return
	}
	log.Infof("[Cache] Connected to %s", Addr())
}

func Addr() string {
	return fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379"))
}

// GetClient returns the shared client, connecting on first use.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// SetClient replaces the shared client, used by tests against an isolated DB.
func SetClient(c *redis.Client) {
	client = c
}

// SetJSON stores v as JSON under key.
func SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return GetClient().Set(ctx, key, b, ttl).Err()
}

// GetJSON decodes the JSON stored under key into v. A missing key returns
// redis.Nil.
func GetJSON(ctx context.Context, key string, v interface{}) error {
	b, err := GetClient().Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func Delete(ctx context.Context, keys ...string) error {
	return GetClient().Del(ctx, keys...).Err()
}
