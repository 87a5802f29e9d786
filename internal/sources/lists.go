package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hunterwarburton/tokenlens/internal/core"
)

// DefaultListTimeout bounds a full token-list download.
const DefaultListTimeout = 10 * time.Second

// TokenList downloads a bulk token list (token-list standard or a bare array).
type TokenList struct {
	source string
	url    string
	http   httpSettings
}

type listEntry struct {
	Address  string `json:"address"`
	Mint     string `json:"mint"`
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals *int   `json:"decimals"`
	LogoURI  string `json:"logoURI"`
	Icon     string `json:"icon"`
}

// NewTokenList creates a loader whose entries are tagged with source.
func NewTokenList(source, url string, opts ...Option) (*TokenList, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%s list url required", source)
	}
	return &TokenList{
		source: source,
		url:    url,
		http:   newSettings(DefaultListTimeout, opts),
	}, nil
}

// NewRegistryList loads the token registry.
func NewRegistryList(url string, opts ...Option) (*TokenList, error) {
	return NewTokenList(core.SourceRegistry, url, opts...)
}

// NewJupiterList loads the Jupiter aggregator token list.
func NewJupiterList(url string, opts ...Option) (*TokenList, error) {
	return NewTokenList(core.SourceJupiter, url, opts...)
}

func (l *TokenList) Name() string { return l.source }

// Load fetches the whole list. Entries without an address are dropped.
func (l *TokenList) Load(ctx context.Context) ([]core.TokenMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var raw json.RawMessage
	if err := l.http.doJSON(ctx, req, &raw); err != nil {
		return nil, fmt.Errorf("load %s list: %w", l.source, err)
	}

	entries, err := decodeEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("load %s list: %w", l.source, err)
	}

	out := make([]core.TokenMetadata, 0, len(entries))
	for _, e := range entries {
		addr := firstNonEmpty(e.Address, e.Mint, e.ID)
		if addr == "" {
			continue
		}
		md := core.TokenMetadata{
			Address:  addr,
			Symbol:   strings.TrimSpace(e.Symbol),
			Name:     strings.TrimSpace(e.Name),
			Decimals: core.DefaultDecimals,
			LogoURI:  firstNonEmpty(e.LogoURI, e.Icon),
			Source:   l.source,
		}
		if e.Decimals != nil && *e.Decimals >= 0 {
			md.Decimals = *e.Decimals
		}
		out = append(out, md)
	}
	return out, nil
}

func decodeEntries(raw json.RawMessage) ([]listEntry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty list body")
	}
	var entries []listEntry
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode list array: %w", err)
		}
	case '{':
		var doc struct {
			Tokens []listEntry `json:"tokens"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decode list object: %w", err)
		}
		entries = doc.Tokens
	default:
		return nil, errors.New("list body is neither an array nor an object")
	}
	return entries, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
