package core

import "context"

// MetadataResolver is the lookup surface consumed by the portfolio service
// and the command router.
type MetadataResolver interface {
	Resolve(ctx context.Context, address string) (*TokenMetadata, error)
	ResolveBatch(ctx context.Context, addresses []string) map[string]*TokenMetadata
	PreloadKnownLists(ctx context.Context)
	ClearCache()
	Stats() Stats
}

// SharedStore is a cross-process metadata tier, e.g. Redis.
type SharedStore interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, address string) (*TokenMetadata, error)
	Set(ctx context.Context, md *TokenMetadata) error
}
