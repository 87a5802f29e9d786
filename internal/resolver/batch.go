package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hunterwarburton/tokenlens/internal/core"
	"github.com/hunterwarburton/tokenlens/internal/logger"
)

// ResolveBatch resolves addresses with at most BatchConcurrency lookups in
// flight, pacing starts to roughly one group per BatchPause. Blank entries
// and duplicates are skipped; failed addresses are absent from the result.
func (r *Resolver) ResolveBatch(ctx context.Context, addresses []string) map[string]*core.TokenMetadata {
	unique := make([]string, 0, len(addresses))
	seen := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		if strings.TrimSpace(addr) == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}

	results := make(map[string]*core.TokenMetadata, len(unique))
	if len(unique) == 0 {
		return results
	}

	batchID := uuid.NewString()
	start := time.Now()
	logger.ResolverDebug("Batch %s: resolving %d addresses (concurrency=%d, pause=%v)",
		batchID, len(unique), r.concurrency, r.pause)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.concurrency)
	limiter := r.newLimiter()

	for _, addr := range unique {
		addr := addr
		if err := limiter.Wait(ctx); err != nil {
			logger.ResolverDebug("Batch %s: stopped scheduling: %v", batchID, err)
			break
		}
		g.Go(func() error {
			md, err := r.Resolve(ctx, addr)
			if err != nil {
				logger.ResolverDebug("Batch %s: %s failed: %v", batchID, addr, err)
				return nil
			}
			mu.Lock()
			results[addr] = md
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logger.ResolverDebug("Batch %s: resolved %d/%d in %v", batchID, len(results), len(unique), time.Since(start))
	return results
}

func (r *Resolver) newLimiter() *rate.Limiter {
	if r.pause <= 0 {
		return rate.NewLimiter(rate.Inf, r.concurrency)
	}
	perSecond := float64(r.concurrency) / r.pause.Seconds()
	return rate.NewLimiter(rate.Limit(perSecond), r.concurrency)
}
