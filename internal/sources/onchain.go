package sources

import (
	"context"
	"time"

	"github.com/hunterwarburton/tokenlens/internal/address"
	"github.com/hunterwarburton/tokenlens/internal/core"
	"github.com/hunterwarburton/tokenlens/internal/logger"
	"github.com/hunterwarburton/tokenlens/internal/solana"
)

const offChainTimeout = 5 * time.Second

// MetadataFetcher is implemented by *solana.Client.
type MetadataFetcher interface {
	GetTokenMetadata(ctx context.Context, mintAddress string) (*solana.OnChainMetadata, error)
	FetchOffChain(ctx context.Context, uri string) (*solana.OffChainJSON, error)
}

// OnChain reads Metaplex metadata for Solana mints.
type OnChain struct {
	client        MetadataFetcher
	offChainLogos bool
}

// NewOnChain creates the on-chain strategy. With offChainLogos set, the
// metadata JSON behind the on-chain URI is fetched to fill LogoURI.
func NewOnChain(client MetadataFetcher, offChainLogos bool) *OnChain {
	return &OnChain{client: client, offChainLogos: offChainLogos}
}

func (o *OnChain) Name() string { return core.SourceOnChain }

// Lookup returns nil, nil for addresses that are not Solana mints or that
// have no metadata account.
func (o *OnChain) Lookup(ctx context.Context, addr string) (*core.TokenMetadata, error) {
	if address.Classify(addr) != address.KindSolana {
		return nil, nil
	}

	onChain, err := o.client.GetTokenMetadata(ctx, addr)
	if err != nil || onChain == nil {
		return nil, err
	}

	md := &core.TokenMetadata{
		Address:  addr,
		Symbol:   onChain.Symbol,
		Name:     onChain.Name,
		Decimals: core.DefaultDecimals,
		URI:      onChain.URI,
		Source:   core.SourceOnChain,
	}
	if onChain.DecimalsKnown {
		md.Decimals = onChain.Decimals
	}

	if o.offChainLogos && onChain.URI != "" {
		octx, cancel := context.WithTimeout(ctx, offChainTimeout)
		doc, err := o.client.FetchOffChain(octx, onChain.URI)
		cancel()
		if err != nil {
			logger.SourceDebug("Off-chain metadata for %s unavailable: %v", addr, err)
		} else {
			md.LogoURI = doc.Image
			if md.Symbol == "" {
				md.Symbol = doc.Symbol
			}
			if md.Name == "" {
				md.Name = doc.Name
			}
		}
	}
	return md, nil
}
