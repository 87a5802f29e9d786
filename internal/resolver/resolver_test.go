package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/tokenlens/internal/core"
	"github.com/hunterwarburton/tokenlens/internal/resolver"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

type spy struct {
	name  string
	calls atomic.Int32
	fn    func(addr string) (*core.TokenMetadata, error)
}

func (s *spy) Name() string { return s.name }

func (s *spy) Lookup(_ context.Context, addr string) (*core.TokenMetadata, error) {
	s.calls.Add(1)
	if s.fn == nil {
		return nil, nil
	}
	return s.fn(addr)
}

func symbolFor(symbol string) func(string) (*core.TokenMetadata, error) {
	return func(addr string) (*core.TokenMetadata, error) {
		return &core.TokenMetadata{Address: addr, Symbol: symbol, Name: symbol + " token", Decimals: 6}, nil
	}
}

type fakeList struct {
	name    string
	records []core.TokenMetadata
	err     error
	loads   atomic.Int32
	// gate, when set, holds Load until it is closed.
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeList) Name() string { return f.name }

func (f *fakeList) Load(ctx context.Context) ([]core.TokenMetadata, error) {
	f.loads.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.records, f.err
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]core.TokenMetadata
	sets int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]core.TokenMetadata)}
}

func (m *memoryStore) Get(_ context.Context, addr string) (*core.TokenMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.data[addr]
	if !ok {
		return nil, nil
	}
	return &md, nil
}

func (m *memoryStore) Set(_ context.Context, md *core.TokenMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[md.Address] = *md
	m.sets++
	return nil
}

func TestResolveEmptyAddress(t *testing.T) {
	r := resolver.New()
	for _, addr := range []string{"", "   "} {
		md, err := r.Resolve(context.Background(), addr)
		assert.ErrorIs(t, err, resolver.ErrEmptyAddress)
		assert.Nil(t, md)
	}
	assert.Zero(t, r.Stats().CacheSize)
}

func TestResolveFallback(t *testing.T) {
	r := resolver.New()

	md, err := r.Resolve(context.Background(), "ABC123XYZ")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", md.Symbol)
	assert.Equal(t, "ABC123", md.Name)
	assert.Equal(t, 9, md.Decimals)
	assert.Equal(t, core.SourceFallback, md.Source)

	md, err = r.Resolve(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", md.Symbol)
	assert.Equal(t, 2, r.Stats().CacheSize)
}

func TestResolveRunsStrategiesOnce(t *testing.T) {
	onchain := &spy{name: core.SourceOnChain, fn: symbolFor("USDC")}
	r := resolver.New(resolver.WithStrategies(onchain))

	first, err := r.Resolve(context.Background(), usdcMint)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), usdcMint)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "USDC", second.Symbol)
	assert.Equal(t, core.SourceOnChain, second.Source)
	assert.EqualValues(t, 1, onchain.calls.Load())
	assert.Equal(t, map[string]int{core.SourceOnChain: 1, "cache": 1}, r.Stats().Hits)
}

func TestResolveReturnsCopies(t *testing.T) {
	r := resolver.New(resolver.WithStrategies(&spy{name: "api", fn: symbolFor("BONK")}))
	md, err := r.Resolve(context.Background(), "bonk")
	require.NoError(t, err)
	md.Symbol = "mutated"

	again, err := r.Resolve(context.Background(), "bonk")
	require.NoError(t, err)
	assert.Equal(t, "BONK", again.Symbol)
}

func TestOnChainHitSkipsAPI(t *testing.T) {
	onchain := &spy{name: core.SourceOnChain, fn: symbolFor("JUP")}
	api := &spy{name: core.SourceAPI, fn: symbolFor("WRONG")}
	r := resolver.New(resolver.WithStrategies(onchain, api))

	md, err := r.Resolve(context.Background(), usdcMint)
	require.NoError(t, err)
	assert.Equal(t, "JUP", md.Symbol)
	assert.Zero(t, api.calls.Load())
}

func TestUnusableStrategyResultsFallThrough(t *testing.T) {
	blank := &spy{name: core.SourceOnChain, fn: func(addr string) (*core.TokenMetadata, error) {
		return &core.TokenMetadata{Address: addr, Name: "No symbol"}, nil
	}}
	failing := &spy{name: "flaky", fn: func(string) (*core.TokenMetadata, error) {
		return nil, errors.New("upstream 500")
	}}
	api := &spy{name: core.SourceAPI, fn: symbolFor("WIF")}
	r := resolver.New(resolver.WithStrategies(blank, failing, api))

	md, err := r.Resolve(context.Background(), usdcMint)
	require.NoError(t, err)
	assert.Equal(t, "WIF", md.Symbol)
	assert.Equal(t, core.SourceAPI, md.Source)
	assert.EqualValues(t, 1, blank.calls.Load())
	assert.EqualValues(t, 1, failing.calls.Load())
}

func TestNamedStrategyFunc(t *testing.T) {
	fn := resolver.StrategyFunc(func(_ context.Context, addr string) (*core.TokenMetadata, error) {
		return &core.TokenMetadata{Symbol: "SOL", Decimals: 9}, nil
	})
	r := resolver.New(resolver.WithStrategies(resolver.Named("static", fn)))

	md, err := r.Resolve(context.Background(), "So11111111111111111111111111111111111111112")
	require.NoError(t, err)
	assert.Equal(t, "static", md.Source)
	assert.Equal(t, "So11111111111111111111111111111111111111112", md.Address)
	assert.Equal(t, "func", fn.Name())
}

func TestListsLoadOnceThenRecheckCache(t *testing.T) {
	registry := &fakeList{name: core.SourceRegistry, records: []core.TokenMetadata{
		{Address: "reg-1", Symbol: "REG", Name: "Registry token", Decimals: 8, Source: core.SourceRegistry},
	}}
	jupiter := &fakeList{name: core.SourceJupiter, records: []core.TokenMetadata{
		{Address: "reg-1", Symbol: "SHADOW", Source: core.SourceJupiter},
		{Address: "jup-1", Symbol: "JUPT", Decimals: 6, Source: core.SourceJupiter},
	}}
	r := resolver.New(resolver.WithRegistry(registry), resolver.WithJupiter(jupiter))
	ctx := context.Background()

	md, err := r.Resolve(ctx, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "REG", md.Symbol)
	assert.EqualValues(t, 0, jupiter.loads.Load())

	md, err = r.Resolve(ctx, "jup-1")
	require.NoError(t, err)
	assert.Equal(t, "JUPT", md.Symbol)

	md, err = r.Resolve(ctx, "unknown-address")
	require.NoError(t, err)
	assert.Equal(t, core.SourceFallback, md.Source)

	assert.EqualValues(t, 1, registry.loads.Load())
	assert.EqualValues(t, 1, jupiter.loads.Load())

	// First writer wins: the Jupiter entry did not replace the registry one.
	md, err = r.Resolve(ctx, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "REG", md.Symbol)

	stats := r.Stats()
	assert.True(t, stats.RegistryLoaded)
	assert.True(t, stats.JupiterLoaded)
	assert.Equal(t, 1, stats.RegistryCount)
	assert.Equal(t, 1, stats.JupiterCount)
	assert.Equal(t, 3, stats.CacheSize)
}

func TestFailedListStillMarkedLoaded(t *testing.T) {
	registry := &fakeList{name: core.SourceRegistry, err: errors.New("timeout")}
	jupiter := &fakeList{name: core.SourceJupiter}
	r := resolver.New(resolver.WithRegistry(registry), resolver.WithJupiter(jupiter))

	r.PreloadKnownLists(context.Background())
	r.PreloadKnownLists(context.Background())
	_, err := r.Resolve(context.Background(), "whatever")
	require.NoError(t, err)

	stats := r.Stats()
	assert.True(t, stats.RegistryLoaded)
	assert.True(t, stats.JupiterLoaded)
	assert.EqualValues(t, 1, registry.loads.Load())
	assert.EqualValues(t, 1, jupiter.loads.Load())
}

func TestCancelledListLoadIsRetried(t *testing.T) {
	registry := &fakeList{name: core.SourceRegistry, records: []core.TokenMetadata{
		{Address: "reg-1", Symbol: "REG", Decimals: 8, Source: core.SourceRegistry},
	}}
	r := resolver.New(resolver.WithRegistry(registry))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.PreloadKnownLists(ctx)
	assert.False(t, r.Stats().RegistryLoaded)

	md, err := r.Resolve(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "REG", md.Symbol)
	assert.Equal(t, core.SourceRegistry, md.Source)
	assert.EqualValues(t, 2, registry.loads.Load())
	assert.True(t, r.Stats().RegistryLoaded)
}

func TestClearCacheDuringListLoad(t *testing.T) {
	registry := &fakeList{
		name:    core.SourceRegistry,
		records: []core.TokenMetadata{{Address: "reg-1", Symbol: "REG", Source: core.SourceRegistry}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	r := resolver.New(resolver.WithRegistry(registry))

	preloaded := make(chan struct{})
	go func() {
		r.PreloadKnownLists(context.Background())
		close(preloaded)
	}()
	<-registry.started

	cleared := make(chan struct{})
	go func() {
		r.ClearCache()
		close(cleared)
	}()
	close(registry.gate)
	<-preloaded
	<-cleared

	// A list flagged as loaded must still have its entries.
	stats := r.Stats()
	if stats.RegistryLoaded {
		assert.Equal(t, 1, stats.RegistryCount)
	}

	md, err := r.Resolve(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "REG", md.Symbol)
}

func TestClearCacheRerunsChain(t *testing.T) {
	onchain := &spy{name: core.SourceOnChain, fn: symbolFor("USDC")}
	registry := &fakeList{name: core.SourceRegistry}
	r := resolver.New(resolver.WithStrategies(onchain), resolver.WithRegistry(registry))
	ctx := context.Background()

	r.PreloadKnownLists(ctx)
	_, err := r.Resolve(ctx, usdcMint)
	require.NoError(t, err)

	r.ClearCache()
	stats := r.Stats()
	assert.False(t, stats.RegistryLoaded)
	assert.False(t, stats.JupiterLoaded)
	assert.Zero(t, stats.CacheSize)
	assert.Empty(t, stats.Hits)

	_, err = r.Resolve(ctx, usdcMint)
	require.NoError(t, err)
	assert.EqualValues(t, 2, onchain.calls.Load())

	r.PreloadKnownLists(ctx)
	assert.EqualValues(t, 2, registry.loads.Load())
}

func TestConcurrentResolveSharesOneSequence(t *testing.T) {
	onchain := &spy{name: core.SourceOnChain, fn: func(addr string) (*core.TokenMetadata, error) {
		time.Sleep(30 * time.Millisecond)
		return &core.TokenMetadata{Address: addr, Symbol: "RAY"}, nil
	}}
	r := resolver.New(resolver.WithStrategies(onchain))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			md, err := r.Resolve(context.Background(), usdcMint)
			assert.NoError(t, err)
			assert.Equal(t, "RAY", md.Symbol)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, onchain.calls.Load())
}

func TestCancelledResolveIsNotCached(t *testing.T) {
	r := resolver.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	md, err := r.Resolve(ctx, "ABC123XYZ")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, md)
	assert.Zero(t, r.Stats().CacheSize)
}

func TestJoinerSurvivesCancelledLeader(t *testing.T) {
	started := make(chan struct{}, 2)
	var calls atomic.Int32
	slow := resolver.Named(core.SourceOnChain, func(ctx context.Context, addr string) (*core.TokenMetadata, error) {
		calls.Add(1)
		started <- struct{}{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return &core.TokenMetadata{Address: addr, Symbol: "JOIN"}, nil
		}
	})
	r := resolver.New(resolver.WithStrategies(slow))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(leaderCtx, "JOINME123")
		leaderErr <- err
	}()
	<-started

	type outcome struct {
		md  *core.TokenMetadata
		err error
	}
	joined := make(chan outcome, 1)
	go func() {
		md, err := r.Resolve(context.Background(), "JOINME123")
		joined <- outcome{md, err}
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	got := <-joined
	require.NoError(t, got.err)
	require.NotNil(t, got.md)
	assert.Equal(t, "JOIN", got.md.Symbol)
	assert.Equal(t, core.SourceOnChain, got.md.Source)
	assert.EqualValues(t, 2, calls.Load())
}

func TestSharedStoreTier(t *testing.T) {
	store := newMemoryStore()
	store.data["shared-1"] = core.TokenMetadata{Address: "shared-1", Symbol: "SHR", Decimals: 4, Source: core.SourceAPI}
	onchain := &spy{name: core.SourceOnChain, fn: func(addr string) (*core.TokenMetadata, error) {
		if addr == "chain-1" {
			return &core.TokenMetadata{Address: addr, Symbol: "CHN"}, nil
		}
		return nil, nil
	}}
	r := resolver.New(resolver.WithSharedStore(store), resolver.WithStrategies(onchain))
	ctx := context.Background()

	md, err := r.Resolve(ctx, "shared-1")
	require.NoError(t, err)
	assert.Equal(t, "SHR", md.Symbol)
	assert.Equal(t, core.SourceAPI, md.Source)
	assert.Zero(t, onchain.calls.Load())

	_, err = r.Resolve(ctx, "chain-1")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "nobody-knows")
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.sets)
	assert.Contains(t, store.data, "chain-1")
	assert.NotContains(t, store.data, "nobody-knows")
	assert.Equal(t, 1, r.Stats().Hits[core.SourceShared])
}

func TestResolveBatchBoundsConcurrency(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	slow := &spy{name: core.SourceOnChain, fn: func(addr string) (*core.TokenMetadata, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return &core.TokenMetadata{Address: addr, Symbol: "T" + addr}, nil
	}}
	r := resolver.New(
		resolver.WithStrategies(slow),
		resolver.WithBatchConcurrency(5),
		resolver.WithBatchPause(0),
	)

	addrs := make([]string, 0, 14)
	for i := 0; i < 12; i++ {
		addrs = append(addrs, fmt.Sprintf("addr-%02d", i))
	}
	addrs = append(addrs, "addr-00", "")

	results := r.ResolveBatch(context.Background(), addrs)
	assert.Len(t, results, 12)
	assert.Equal(t, "Taddr-07", results["addr-07"].Symbol)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(5))
	assert.EqualValues(t, 12, slow.calls.Load())
}

func TestResolveBatchPacing(t *testing.T) {
	r := resolver.New(resolver.WithBatchConcurrency(2), resolver.WithBatchPause(50*time.Millisecond))
	addrs := []string{"a1", "a2", "a3", "a4", "a5", "a6"}

	start := time.Now()
	results := r.ResolveBatch(context.Background(), addrs)
	elapsed := time.Since(start)

	assert.Len(t, results, 6)
	// Two immediate starts from the burst, then one start every 25ms.
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
}

func TestResolveBatchCancelled(t *testing.T) {
	r := resolver.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := r.ResolveBatch(ctx, []string{"a", "b", "c"})
	assert.Empty(t, results)
	assert.Empty(t, r.ResolveBatch(context.Background(), nil))
}
