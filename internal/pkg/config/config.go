// Package config collects the runtime settings of the explorer platform.
package config

import (
	"strings"
	"time"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

type Config struct {
	// RootDomain is the platform domain explorers get a <slug>.<root> host on.
	RootDomain         string
	AppSubdomain       string
	DefaultPlanSlug    string
	DefaultTrialLength int64
	CryptoDaysUntilDue int64
	RPCProbeTimeout    time.Duration
	RPCHealthInterval  time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string

	InternalAPISecret string
	JobWorkers        int
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		RootDomain:          strings.ToLower(strings.TrimSpace(env.GetEnv("APP_DOMAIN", "tryblockfox.com"))),
		AppSubdomain:        strings.ToLower(strings.TrimSpace(env.GetEnv("APP_SUBDOMAIN", "app"))),
		DefaultPlanSlug:     env.GetEnv("DEFAULT_PLAN_SLUG", "free"),
		DefaultTrialLength:  int64(env.GetEnvInt("DEFAULT_TRIAL_LENGTH", 7)),
		CryptoDaysUntilDue:  int64(env.GetEnvInt("CRYPTO_DAYS_UNTIL_DUE", 7)),
		RPCProbeTimeout:     env.GetEnvDuration("RPC_PROBE_TIMEOUT", 10*time.Second),
		RPCHealthInterval:   env.GetEnvDuration("RPC_HEALTH_INTERVAL", 5*time.Minute),
		StripeSecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		InternalAPISecret:   env.GetEnv("INTERNAL_API_SECRET", ""),
		JobWorkers:          env.GetEnvInt("JOB_WORKERS", 5),
	}
}

// BillingEnabled reports whether subscriptions go through Stripe.
func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != ""
}

// AppDomain is the host of the platform dashboard, e.g. app.tryblockfox.com.
func (c *Config) AppDomain() string {
	if c.AppSubdomain == "" {
		return c.RootDomain
	}
	return c.AppSubdomain + "." + c.RootDomain
}

// SlugFromHost extracts the explorer slug from a <slug>.<root> host. ok is
// false for hosts outside the root domain and for nested subdomains.
func (c *Config) SlugFromHost(host string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(host))
	suffix := "." + c.RootDomain
	if c.RootDomain == "" || !strings.HasSuffix(h, suffix) {
		return "", false
	}
	slug := strings.TrimSuffix(h, suffix)
	if slug == "" || strings.Contains(slug, ".") {
		return "", false
	}
	return slug, true
}

// IsPlatformSubdomain reports whether host sits under the root domain.
func (c *Config) IsPlatformSubdomain(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	return c.RootDomain != "" && (h == c.RootDomain || strings.HasSuffix(h, "."+c.RootDomain))
}
