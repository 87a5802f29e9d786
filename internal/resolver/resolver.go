// Package resolver implements the token-metadata cascade: memory cache,
// optional shared tier, metadata strategies, bulk token lists, and finally a
// truncated-address fallback.
package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hunterwarburton/tokenlens/internal/address"
	"github.com/hunterwarburton/tokenlens/internal/cache"
	"github.com/hunterwarburton/tokenlens/internal/core"
	"github.com/hunterwarburton/tokenlens/internal/logger"
)

const (
	DefaultBatchConcurrency = 5
	DefaultBatchPause       = 100 * time.Millisecond

	fallbackSymbolLen = 6

	// hitCache counts answers served straight from the memory cache.
	hitCache = "cache"
)

// ErrEmptyAddress is returned by Resolve for empty or blank addresses.
var ErrEmptyAddress = errors.New("resolver: empty address")

// Strategy is one metadata source consulted per address.
type Strategy interface {
	Name() string
	Lookup(ctx context.Context, address string) (*core.TokenMetadata, error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(ctx context.Context, address string) (*core.TokenMetadata, error)

func (f StrategyFunc) Name() string { return "func" }

func (f StrategyFunc) Lookup(ctx context.Context, address string) (*core.TokenMetadata, error) {
	return f(ctx, address)
}

// Named gives a StrategyFunc a name for logs and hit counters.
func Named(name string, fn StrategyFunc) Strategy {
	return namedStrategy{name: name, fn: fn}
}

type namedStrategy struct {
	name string
	fn   StrategyFunc
}

func (n namedStrategy) Name() string { return n.name }

func (n namedStrategy) Lookup(ctx context.Context, address string) (*core.TokenMetadata, error) {
	return n.fn(ctx, address)
}

// ListLoader downloads a complete token list.
type ListLoader interface {
	Name() string
	Load(ctx context.Context) ([]core.TokenMetadata, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStrategies appends per-address strategies, consulted in order.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Resolver) {
		for _, s := range strategies {
			if s != nil {
				r.strategies = append(r.strategies, s)
			}
		}
	}
}

// WithRegistry sets the token registry list.
func WithRegistry(l ListLoader) Option {
	return func(r *Resolver) { r.registry.loader = l }
}

// WithJupiter sets the aggregator token list.
func WithJupiter(l ListLoader) Option {
	return func(r *Resolver) { r.jupiter.loader = l }
}

// WithSharedStore enables the cross-process cache tier.
func WithSharedStore(s core.SharedStore) Option {
	return func(r *Resolver) { r.shared = s }
}

// WithBatchConcurrency caps in-flight resolutions in ResolveBatch.
func WithBatchConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithBatchPause sets the pacing interval between groups of batch starts.
// Zero or negative disables pacing.
func WithBatchPause(d time.Duration) Option {
	return func(r *Resolver) { r.pause = d }
}

// Resolver owns the metadata cache and the cascade configuration.
type Resolver struct {
	cache      *cache.Memory
	shared     core.SharedStore
	strategies []Strategy
	registry   listState
	jupiter    listState

	concurrency int
	pause       time.Duration

	group singleflight.Group

	hitsMu sync.Mutex
	hits   map[string]int
}

var _ core.MetadataResolver = (*Resolver)(nil)

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		cache:       cache.NewMemory(),
		concurrency: DefaultBatchConcurrency,
		pause:       DefaultBatchPause,
		hits:        make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns metadata for address. Any non-blank address yields a
// record; the only errors are ErrEmptyAddress and context cancellation.
func (r *Resolver) Resolve(ctx context.Context, addr string) (*core.TokenMetadata, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, ErrEmptyAddress
	}
	if md, ok := r.cache.Get(addr); ok {
		r.recordHit(hitCache)
		return md, nil
	}

	for {
		ch := r.group.DoChan(addr, func() (interface{}, error) {
			return r.resolve(ctx, addr)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// The flight ran on another caller's context, which went away.
				if ctx.Err() == nil {
					logger.ResolverDebug("In-flight resolution for %s was cancelled, retrying: %v", addr, res.Err)
					continue
				}
				return nil, res.Err
			}
			if res.Shared {
				logger.ResolverDebug("Joined in-flight resolution for %s", addr)
			}
			return res.Val.(*core.TokenMetadata).Clone(), nil
		}
	}
}

func (r *Resolver) resolve(ctx context.Context, addr string) (*core.TokenMetadata, error) {
	// Another flight may have finished between the caller's cache check and ours.
	if md, ok := r.cache.Get(addr); ok {
		r.recordHit(hitCache)
		return md, nil
	}

	if r.shared != nil {
		md, err := r.shared.Get(ctx, addr)
		switch {
		case err != nil:
			logger.ResolverDebug("Shared cache read for %s failed: %v", addr, err)
		case md != nil:
			md.Address = addr
			if md.Source == "" {
				md.Source = core.SourceShared
			}
			r.recordHit(core.SourceShared)
			stored, _ := r.cache.PutIfAbsent(md)
			return stored, nil
		}
	}

	for _, s := range r.strategies {
		md, err := s.Lookup(ctx, addr)
		if err != nil {
			logger.ResolverDebug("%s lookup for %s failed: %v", s.Name(), addr, err)
			continue
		}
		if md == nil || strings.TrimSpace(md.Symbol) == "" {
			continue
		}
		md = md.Clone()
		md.Address = addr
		if md.Source == "" {
			md.Source = s.Name()
		}
		stored, inserted := r.cache.PutIfAbsent(md)
		r.recordHit(stored.Source)
		if inserted {
			r.writeThrough(ctx, stored)
		}
		return stored, nil
	}

	for _, l := range []*listState{&r.registry, &r.jupiter} {
		if !l.configured() {
			continue
		}
		l.ensure(ctx, r.cache)
		if md, ok := r.cache.Get(addr); ok {
			r.recordHit(md.Source)
			return md, nil
		}
	}

	// A cancelled caller must not pin a fallback into the cache.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	short := address.Short(addr, fallbackSymbolLen)
	stored, _ := r.cache.PutIfAbsent(&core.TokenMetadata{
		Address:  addr,
		Symbol:   short,
		Name:     short,
		Decimals: core.DefaultDecimals,
		Source:   core.SourceFallback,
	})
	r.recordHit(stored.Source)
	logger.ResolverDebug("No source knew %s, using fallback %q", addr, short)
	return stored, nil
}

func (r *Resolver) writeThrough(ctx context.Context, md *core.TokenMetadata) {
	if r.shared == nil || md.Source == core.SourceFallback {
		return
	}
	if err := r.shared.Set(ctx, md); err != nil {
		logger.ResolverDebug("Shared cache write for %s failed: %v", md.Address, err)
	}
}

func (r *Resolver) recordHit(source string) {
	r.hitsMu.Lock()
	r.hits[source]++
	r.hitsMu.Unlock()
}

// PreloadKnownLists loads the registry and then the Jupiter list unless
// already loaded. Failures are logged and still mark the list as loaded,
// except when ctx itself was cancelled.
func (r *Resolver) PreloadKnownLists(ctx context.Context) {
	r.registry.ensure(ctx, r.cache)
	r.jupiter.ensure(ctx, r.cache)
}

// ClearCache drops every cached record and forgets that lists were loaded.
// The shared tier is left to expire on its own.
func (r *Resolver) ClearCache() {
	// Flags go last so a list loaded mid-clear is loaded again.
	r.cache.Clear()
	r.registry.reset()
	r.jupiter.reset()

	r.hitsMu.Lock()
	r.hits = make(map[string]int)
	r.hitsMu.Unlock()
	logger.ResolverInfo("Metadata cache cleared")
}

// Stats returns a snapshot of cache and list state.
func (r *Resolver) Stats() core.Stats {
	r.hitsMu.Lock()
	hits := make(map[string]int, len(r.hits))
	for k, v := range r.hits {
		hits[k] = v
	}
	r.hitsMu.Unlock()

	return core.Stats{
		CacheSize:      r.cache.Len(),
		RegistryLoaded: r.registry.isLoaded(),
		JupiterLoaded:  r.jupiter.isLoaded(),
		RegistryCount:  r.cache.CountSource(core.SourceRegistry),
		JupiterCount:   r.cache.CountSource(core.SourceJupiter),
		Hits:           hits,
	}
}
