package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/hunterwarburton/tokenlens/internal/cache"
	"github.com/hunterwarburton/tokenlens/internal/logger"
)

// listState tracks one bulk list. The mutex is held for the whole download
// so concurrent resolutions wait for a single load.
type listState struct {
	mu     sync.Mutex
	loader ListLoader
	loaded bool
}

func (l *listState) configured() bool {
	return l.loader != nil
}

func (l *listState) ensure(ctx context.Context, c *cache.Memory) {
	if l.loader == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return
	}

	start := time.Now()
	records, err := l.loader.Load(ctx)
	if err != nil && ctx.Err() != nil {
		logger.ResolverDebug("Loading %s list abandoned: %v", l.loader.Name(), err)
		return
	}
	// A list that failed on its own is not retried until ClearCache.
	l.loaded = true
	if err != nil {
		logger.ResolverWarn("Loading %s list failed after %v: %v", l.loader.Name(), time.Since(start), err)
		return
	}
	inserted := c.PutAllIfAbsent(records)
	logger.ResolverInfo("Loaded %s list: %d entries, %d new, took %v",
		l.loader.Name(), len(records), inserted, time.Since(start))
}

func (l *listState) isLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

func (l *listState) reset() {
	l.mu.Lock()
	l.loaded = false
	l.mu.Unlock()
}
