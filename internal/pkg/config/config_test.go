package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

func TestLoadDefaults(t *testing.T) {
	env.Env = map[string]string{}
	cfg := Load()

	assert.Equal(t, "tryblockfox.com", cfg.RootDomain)
	assert.Equal(t, "app.tryblockfox.com", cfg.AppDomain())
	assert.Equal(t, "free", cfg.DefaultPlanSlug)
	assert.Equal(t, int64(7), cfg.DefaultTrialLength)
	assert.Equal(t, 10*time.Second, cfg.RPCProbeTimeout)
	assert.False(t, cfg.BillingEnabled())
}

func TestLoadFromEnvMap(t *testing.T) {
	env.Env = map[string]string{
		"APP_DOMAIN":           "Explorers.Example",
		"DEFAULT_TRIAL_LENGTH": "14",
		"RPC_PROBE_TIMEOUT":    "3s",
		"STRIPE_SECRET_KEY":    "sk_test_123",
		"JOB_WORKERS":          "nope",
	}
	t.Cleanup(func() { env.Env = map[string]string{} })

	cfg := Load()
	assert.Equal(t, "explorers.example", cfg.RootDomain)
	assert.Equal(t, int64(14), cfg.DefaultTrialLength)
	assert.Equal(t, 3*time.Second, cfg.RPCProbeTimeout)
	assert.True(t, cfg.BillingEnabled())
	assert.Equal(t, 5, cfg.JobWorkers)
}

func TestSlugFromHost(t *testing.T) {
	cfg := &Config{RootDomain: "tryblockfox.com", AppSubdomain: "app"}

	tests := []struct {
		host string
		slug string
		ok   bool
	}{
		{"acme.tryblockfox.com", "acme", true},
		{"ACME.TryBlockFox.com", "acme", true},
		{"tryblockfox.com", "", false},
		{"a.b.tryblockfox.com", "", false},
		{"explorer.acme.io", "", false},
		{"eviltryblockfox.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			slug, ok := cfg.SlugFromHost(tt.host)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.slug, slug)
		})
	}

	assert.True(t, cfg.IsPlatformSubdomain("foo.tryblockfox.com"))
	assert.True(t, cfg.IsPlatformSubdomain("tryblockfox.com"))
	assert.False(t, cfg.IsPlatformSubdomain("tryblockfox.com.evil.io"))
}
