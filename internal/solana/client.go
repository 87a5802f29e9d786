package solana

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	jrpc "github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/hunterwarburton/tokenlens/internal/logger"
)

// DefaultMainnetEndpoint is the public RPC endpoint for Solana mainnet-beta.
const DefaultMainnetEndpoint = "https://api.mainnet-beta.solana.com/"

// RPC is the subset of *rpc.Client the package needs.
type RPC interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*rpc.GetMultipleAccountsResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
}

// Client uses the solana-go SDK's RPC client.
type Client struct {
	rpcClient      RPC
	httpClient     *http.Client // off-chain JSON metadata
	maxRetries     int
	initialBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRPC replaces the RPC client.
func WithRPC(r RPC) Option {
	return func(c *Client) {
		if r != nil {
			c.rpcClient = r
		}
	}
}

// WithHTTPClient sets the client used for off-chain metadata.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithRetry sets how often a rate-limited RPC call is retried and the first backoff.
func WithRetry(maxRetries int, initialBackoff time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if initialBackoff > 0 {
			c.initialBackoff = initialBackoff
		}
	}
}

// NewClient creates a new RPC client pointing to the specified endpoint.
// If endpoint is an empty string DefaultMainnetEndpoint is used.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultMainnetEndpoint
	}
	c := &Client{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		maxRetries:     3,
		initialBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rpcClient == nil {
		c.rpcClient = rpc.New(endpoint)
	}
	return c
}

// isRateLimited reports whether err is a 429, either as a JSON-RPC error or
// as a bare HTTP status the node did not wrap in JSON-RPC.
func isRateLimited(err error) bool {
	var rpcErr *jrpc.RPCError
	if errors.As(err, &rpcErr) && rpcErr != nil && rpcErr.Code == http.StatusTooManyRequests {
		return true
	}
	var httpErr *jrpc.HTTPError
	return errors.As(err, &httpErr) && httpErr != nil && httpErr.Code == http.StatusTooManyRequests
}

// withRetry runs op, retrying with exponential backoff while the node
// answers with a rate-limit error.
func (c *Client) withRetry(ctx context.Context, what string, op func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = op()
		if err == nil || !isRateLimited(err) || attempt >= c.maxRetries {
			return err
		}
		wait := c.initialBackoff * time.Duration(1<<attempt)
		logger.SolanaWarn("Rate limit hit for %s (Code 429). Retrying in %v (attempt %d/%d)", what, wait, attempt+1, c.maxRetries)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
