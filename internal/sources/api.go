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

// MetadataAPI queries a JSON metadata service with POST {"address": ...}.
type MetadataAPI struct {
	endpoint string
	http     httpSettings
}

type apiRequest struct {
	Address string `json:"address"`
}

type apiToken struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals *int   `json:"decimals"`
	Image    string `json:"image"`
	LogoURI  string `json:"logoURI"`
}

// Some deployments wrap the token in {"data": {...}}.
type apiResponse struct {
	apiToken
	Data *apiToken `json:"data"`
}

// NewMetadataAPI creates the API strategy.
func NewMetadataAPI(endpoint string, opts ...Option) (*MetadataAPI, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("metadata api endpoint required")
	}
	return &MetadataAPI{
		endpoint: endpoint,
		http:     newSettings(15*time.Second, opts),
	}, nil
}

func (a *MetadataAPI) Name() string { return core.SourceAPI }

// Lookup returns whatever the service knows; the resolver decides whether
// the answer is usable.
func (a *MetadataAPI) Lookup(ctx context.Context, addr string) (*core.TokenMetadata, error) {
	body, err := json.Marshal(apiRequest{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var payload apiResponse
	if err := a.http.doJSON(ctx, req, &payload); err != nil {
		return nil, err
	}

	tok := payload.apiToken
	if payload.Data != nil {
		tok = *payload.Data
	}

	md := &core.TokenMetadata{
		Address:  addr,
		Symbol:   strings.TrimSpace(tok.Symbol),
		Name:     strings.TrimSpace(tok.Name),
		Decimals: core.DefaultDecimals,
		LogoURI:  tok.Image,
		Source:   core.SourceAPI,
	}
	if md.LogoURI == "" {
		md.LogoURI = tok.LogoURI
	}
	if tok.Decimals != nil && *tok.Decimals >= 0 {
		md.Decimals = *tok.Decimals
	}
	if md.Name == "" {
		md.Name = md.Symbol
	}
	return md, nil
}
