package env

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	// Docker and tests pass configuration through the process environment.
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt returns key parsed as an int, or def when unset or malformed.
func GetEnvInt(key string, def int) int {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("[Env] %s=%q is not a number, using %d", key, raw, def)
		return def
	}
	return v
}

// GetEnvBool returns key parsed as a bool, or def when unset or malformed.
func GetEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// GetEnvDuration parses values like "10s" or "5m".
func GetEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Warnf("[Env] %s=%q is not a duration, using %s", key, raw, def)
		return def
	}
	return v
}

func SetupEnvFile() {
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/blockfox to project root
		"../../../.env", // Fallback for deeper nesting
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	Env = map[string]string{}
	log.Warn("[Env] No .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
