package assets

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"
)

// Client stores branding assets in an S3 bucket.
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// NewClient creates a new S3 asset client
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("S3 asset storage is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	client := &Client{
		s3Client: s3Client,
		config:   cfg,
	}

	if err := client.testConnection(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	log.Infof("[Assets] Successfully initialized S3 client for bucket: %s", cfg.BucketName)
	return client, nil
}

// testConnection checks that the bucket exists, creating it outside of prod.
func (c *Client) testConnection(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.BucketName),
	})
	if err == nil {
		return nil
	}
	if GetAppEnv() != "prod" {
		log.Warnf("[Assets] Bucket %s not found, attempting to create it", c.config.BucketName)
		return c.createBucket(ctx)
	}
	return fmt.Errorf("bucket %s not accessible: %w", c.config.BucketName, err)
}

func (c *Client) createBucket(ctx context.Context) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(c.config.BucketName),
	}

	// S3-compatible endpoints reject the location constraint; us-east-1 must omit it
	if c.config.EndpointURL == "" && c.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.config.Region),
		}
	}

	if _, err := c.s3Client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", c.config.BucketName, err)
	}

	log.Infof("[Assets] Successfully created bucket: %s", c.config.BucketName)
	return nil
}

// Put uploads an object and returns its public URL.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=604800"),
		Metadata: map[string]string{
			"upload-source": "blockfox-branding",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Infof("[Assets] Uploaded s3://%s/%s (%d bytes)", c.config.BucketName, key, len(data))
	return c.config.ObjectURL(key), nil
}

// Delete removes an object from the bucket.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}
