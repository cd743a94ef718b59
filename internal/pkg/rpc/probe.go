// Package rpc talks to the JSON-RPC endpoints backing explorer workspaces.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrTimeout        = errors.New("rpc: probe timed out")
	ErrEmptyResult    = errors.New("rpc: empty network id")
	ErrUnsupportedURL = errors.New("rpc: unsupported url scheme")
)

// Prober fetches the network id of an RPC endpoint.
type Prober interface {
	FetchNetworkID(ctx context.Context, rpcURL string) (string, error)
}

// EthProber queries endpoints with go-ethereum's client.
type EthProber struct{}

func NewEthProber() *EthProber {
	return &EthProber{}
}

// ValidateURL accepts http(s) and ws(s) endpoints.
func ValidateURL(rpcURL string) error {
	u, err := url.Parse(strings.TrimSpace(rpcURL))
	if err != nil {
		return err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("rpc: missing host in %q", rpcURL)
	}
	return nil
}

// FetchNetworkID dials the endpoint and calls net_version.
func (p *EthProber) FetchNetworkID(ctx context.Context, rpcURL string) (string, error) {
	if err := ValidateURL(rpcURL); err != nil {
		return "", err
	}
	client, err := ethclient.DialContext(ctx, strings.TrimSpace(rpcURL))
	if err != nil {
		return "", err
	}
	defer client.Close()

	id, err := client.NetworkID(ctx)
	if err != nil {
		return "", err
	}
	if id == nil {
		return "", ErrEmptyResult
	}
	return id.String(), nil
}

// FetchNetworkIDWithTimeout runs the probe under a deadline. A probe that has
// not returned when the deadline passes counts as failed even if the client
// ignores context cancellation. Empty results are reported as errors.
func FetchNetworkIDWithTimeout(ctx context.Context, p Prober, rpcURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := p.FetchNetworkID(ctx, rpcURL)
		done <- result{id: id, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrTimeout
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		if strings.TrimSpace(r.id) == "" {
			return "", ErrEmptyResult
		}
		return r.id, nil
	}
}
