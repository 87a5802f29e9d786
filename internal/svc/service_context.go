// Package svc wires the shared resources used by the bot daemon and the CLI.
package svc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hunterwarburton/tokenlens/internal/cache"
	"github.com/hunterwarburton/tokenlens/internal/config"
	"github.com/hunterwarburton/tokenlens/internal/logger"
	"github.com/hunterwarburton/tokenlens/internal/portfolio"
	"github.com/hunterwarburton/tokenlens/internal/resolver"
	"github.com/hunterwarburton/tokenlens/internal/solana"
	"github.com/hunterwarburton/tokenlens/internal/sources"
)

// ServiceContext holds the resolver and its collaborators.
type ServiceContext struct {
	Config    *config.Config
	Solana    *solana.Client
	Resolver  *resolver.Resolver
	Portfolio *portfolio.Service

	shared *cache.Redis
}

const (
	// idleConnsPerHost keeps enough warm connections per host for a batch.
	idleConnsPerHost = 16
	offChainTimeout  = 30 * time.Second
)

// newHTTPClient returns the client shared by the off-chain metadata fetches,
// the metadata API and the token lists. The sources apply their own shorter
// deadlines; timeout caps anything that does not.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = idleConnsPerHost
	transport.IdleConnTimeout = 90 * time.Second
	return &http.Client{Transport: transport, Timeout: timeout}
}

// NewServiceContext builds the cascade described by c. An unreachable Redis
// only disables the shared tier.
func NewServiceContext(ctx context.Context, c *config.Config) (*ServiceContext, error) {
	httpClient := newHTTPClient(max(offChainTimeout, c.Sources.ListFetchTimeout, c.Sources.RequestTimeout))
	solClient := solana.NewClient(c.Solana.RPCURL, solana.WithHTTPClient(httpClient))

	opts := []resolver.Option{
		resolver.WithBatchConcurrency(c.Batch.Concurrency),
		resolver.WithBatchPause(c.Batch.Pause),
		resolver.WithStrategies(sources.NewOnChain(solClient, c.Solana.OffChainLogos)),
	}

	if c.Sources.APIURL != "" {
		api, err := sources.NewMetadataAPI(c.Sources.APIURL,
			sources.WithHTTPClient(httpClient),
			sources.WithAPIKey(c.Sources.APIKey),
			sources.WithTimeout(c.Sources.RequestTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("metadata api: %w", err)
		}
		opts = append(opts, resolver.WithStrategies(api))
	}

	if c.Sources.RegistryURL != "" {
		registry, err := sources.NewRegistryList(c.Sources.RegistryURL, sources.WithHTTPClient(httpClient), sources.WithTimeout(c.Sources.ListFetchTimeout))
		if err != nil {
			return nil, err
		}
		opts = append(opts, resolver.WithRegistry(registry))
	}
	if c.Sources.JupiterURL != "" {
		jupiter, err := sources.NewJupiterList(c.Sources.JupiterURL, sources.WithHTTPClient(httpClient), sources.WithTimeout(c.Sources.ListFetchTimeout))
		if err != nil {
			return nil, err
		}
		opts = append(opts, resolver.WithJupiter(jupiter))
	}

	sc := &ServiceContext{Config: c, Solana: solClient}

	if c.Redis.Addr != "" {
		shared, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			TTL:      c.Redis.TTL,
		})
		if err != nil {
			logger.Warn("Shared metadata cache disabled: %v", err)
		} else {
			sc.shared = shared
			opts = append(opts, resolver.WithSharedStore(shared))
			logger.Info("Shared metadata cache enabled at %s", c.Redis.Addr)
		}
	}

	sc.Resolver = resolver.New(opts...)
	sc.Portfolio = portfolio.NewService(solClient, sc.Resolver)

	logger.Info("Service context ready (rpc=%s, api=%t, registry=%t, jupiter=%t)",
		c.Solana.RPCURL, c.Sources.APIURL != "", c.Sources.RegistryURL != "", c.Sources.JupiterURL != "")
	return sc, nil
}

// Close releases the shared cache connection.
func (s *ServiceContext) Close() {
	if s.shared != nil {
		if err := s.shared.Close(); err != nil {
			logger.Warn("Closing shared cache: %v", err)
		}
	}
}
