// Package supervisor is a client for the process manager server that runs one
// sync process per explorer, keyed by the explorer slug.
package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

const (
	StatusOnline   = "online"
	StatusStopped  = "stopped"
	StatusStopping = "stopping"
	StatusErrored  = "errored"
)

// Process is the supervisor's view of a sync process.
type Process struct {
	Name string `json:"name"`
	Env  struct {
		Status string `json:"status"`
	} `json:"pm2_env"`
}

// Status returns the process status, stopped when unknown.
func (p *Process) Status() string {
	if p == nil || strings.TrimSpace(p.Env.Status) == "" {
		return StatusStopped
	}
	return p.Env.Status
}

// Supervisor finds and controls sync processes.
type Supervisor interface {
	Find(ctx context.Context, slug string) (*Process, error)
	Start(ctx context.Context, slug string, workspace string) error
	Stop(ctx context.Context, slug string) error
	Delete(ctx context.Context, slug string) error
}

type Client struct {
	BaseURL    string
	Secret     string
	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(env.GetEnv("PM2_HOST", "http://localhost:9090")), "/"),
		Secret:  strings.TrimSpace(env.GetEnv("PM2_SECRET", "")),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Find returns the process named slug, or nil when none exists.
func (c *Client) Find(ctx context.Context, slug string) (*Process, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/processes/"+url.PathEscape(slug), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("supervisor find %s failed: status=%d body=%s", slug, resp.StatusCode, string(body))
	}
	if len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return nil, nil
	}

	var p Process
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Start starts or resumes the sync process of an explorer.
func (c *Client) Start(ctx context.Context, slug string, workspace string) error {
	payload, err := json.Marshal(map[string]string{"slug": slug, "workspace": workspace})
	if err != nil {
		return err
	}
	return c.expectOK(ctx, http.MethodPost, "/processes", payload, "start "+slug)
}

func (c *Client) Stop(ctx context.Context, slug string) error {
	return c.expectOK(ctx, http.MethodPost, "/processes/"+url.PathEscape(slug)+"/stop", nil, "stop "+slug)
}

// Delete removes the process. Unknown processes are not an error.
func (c *Client) Delete(ctx context.Context, slug string) error {
	resp, body, err := c.do(ctx, http.MethodPost, "/processes/"+url.PathEscape(slug)+"/delete", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("supervisor delete %s failed: status=%d body=%s", slug, resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) expectOK(ctx context.Context, method, path string, payload []byte, what string) error {
	resp, body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("supervisor %s failed: status=%d body=%s", what, resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return nil, nil, errors.New("PM2_HOST is not configured")
	}
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid PM2_HOST: %w", err)
	}
	q := u.Query()
	if c.Secret != "" {
		q.Set("secret", c.Secret)
	}
	u.RawQuery = q.Encode()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp, body, nil
}
