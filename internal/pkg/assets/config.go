package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

// Config holds the S3 settings of the branding asset bucket.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
		Enabled:         env.GetEnv("S3_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if asset uploads are configured
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey generates the object key of a branding asset.
// Format: branding/<explorer id>/<kind>-<uuid>.png
func (c *Config) ObjectKey(explorerID uint, kind Kind) string {
	return fmt.Sprintf("branding/%d/%s-%s.png", explorerID, kind, uuid.NewString())
}

// ObjectURL is the public URL of a stored object. Without a configured base
// URL the virtual-hosted AWS URL is used.
func (c *Config) ObjectURL(key string) string {
	if c.PublicBaseURL != "" {
		return strings.TrimSuffix(c.PublicBaseURL, "/") + "/" + key
	}
	if c.EndpointURL != "" {
		return strings.TrimSuffix(c.EndpointURL, "/") + "/" + c.BucketName + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.BucketName, c.Region, key)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}
