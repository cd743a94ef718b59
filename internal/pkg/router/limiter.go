package router

import (
	"net"
	"strconv"

	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/BlockFox/internal/pkg/cache"
	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

// NewLimiterStorage keeps rate limiter counters in Redis so limits hold
// across instances.
func NewLimiterStorage() *redis.Storage {
	// Reuse the connection settings of the shared cache client
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Database 1 keeps limiter keys apart from the job queue (DB 0)
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: env.GetEnvInt("LIMITER_CACHE_DB", 1),
		Reset:    false,
	})
}
