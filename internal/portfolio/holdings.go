// Package portfolio turns a wallet into display-ready token holdings.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hunterwarburton/tokenlens/internal/core"
	"github.com/hunterwarburton/tokenlens/internal/logger"
)

// WalletReader is implemented by *solana.Client.
type WalletReader interface {
	ResolveAddress(ctx context.Context, addrOrName string) (string, error)
	GetTokenBalances(ctx context.Context, owner string) ([]core.Holding, error)
}

// Report is the enriched holdings of one wallet.
type Report struct {
	Query    string         `json:"query"`
	Owner    string         `json:"owner"`
	Holdings []core.Holding `json:"holdings"`
}

// Service enriches wallet balances with token metadata.
type Service struct {
	wallet   WalletReader
	resolver core.MetadataResolver
}

// NewService creates a portfolio service.
func NewService(wallet WalletReader, resolver core.MetadataResolver) *Service {
	return &Service{wallet: wallet, resolver: resolver}
}

// Holdings resolves walletOrName (base58 or .sol), reads its SPL balances and
// attaches metadata to each mint. Holdings are ordered by symbol, then mint.
func (s *Service) Holdings(ctx context.Context, walletOrName string) (*Report, error) {
	owner, err := s.wallet.ResolveAddress(ctx, walletOrName)
	if err != nil {
		return nil, fmt.Errorf("resolve wallet: %w", err)
	}

	holdings, err := s.wallet.GetTokenBalances(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("read balances of %s: %w", owner, err)
	}

	mints := make([]string, 0, len(holdings))
	for _, h := range holdings {
		mints = append(mints, h.Mint)
	}
	meta := s.resolver.ResolveBatch(ctx, mints)
	if len(meta) < len(mints) {
		logger.Warn("Metadata missing for %d of %d mints held by %s", len(mints)-len(meta), len(mints), owner)
	}

	for i := range holdings {
		holdings[i].Metadata = meta[holdings[i].Mint]
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		si, sj := symbolOf(holdings[i]), symbolOf(holdings[j])
		if si != sj {
			return si < sj
		}
		return holdings[i].Mint < holdings[j].Mint
	})

	return &Report{Query: walletOrName, Owner: owner, Holdings: holdings}, nil
}

func symbolOf(h core.Holding) string {
	if h.Metadata == nil {
		return strings.ToUpper(h.Mint)
	}
	return strings.ToUpper(h.Metadata.Symbol)
}
