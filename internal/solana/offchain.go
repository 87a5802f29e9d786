package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxOffChainBody caps how much of a metadata JSON document is read.
const maxOffChainBody = 1 << 20

// ErrOffChainHTML is returned when a metadata URI serves a web page instead of JSON.
var ErrOffChainHTML = errors.New("metadata URI returns HTML instead of JSON")

// OffChainJSON is the document typically hosted at the on-chain metadata URI.
// Only the fields used for display are decoded.
type OffChainJSON struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// FetchOffChain downloads and decodes the metadata JSON at uri.
func (c *Client) FetchOffChain(ctx context.Context, uri string) (*OffChainJSON, error) {
	cleanedURI := strings.TrimSpace(uri)
	if cleanedURI == "" {
		return nil, errors.New("empty metadata URI")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, cleanedURI, nil)
	if err != nil {
		return nil, fmt.Errorf("build off-chain metadata request for %s: %w", cleanedURI, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch off-chain metadata %s: %w", cleanedURI, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch off-chain metadata %s: status %d", cleanedURI, httpResp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxOffChainBody))
	if err != nil {
		return nil, fmt.Errorf("read off-chain metadata %s: %w", cleanedURI, err)
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "<!doctype html") || strings.Contains(lower, "<html") {
		return nil, ErrOffChainHTML
	}

	var doc OffChainJSON
	if err := json.Unmarshal(body, &doc); err != nil {
		// Some hosts emit raw newlines inside string values.
		cleanedBody := strings.ReplaceAll(string(body), "\n", "\\n")
		if errRetry := json.Unmarshal([]byte(cleanedBody), &doc); errRetry != nil {
			return nil, fmt.Errorf("decode off-chain metadata %s: %w", cleanedURI, errRetry)
		}
	}

	doc.Name = strings.TrimRight(doc.Name, "\x00")
	doc.Symbol = strings.TrimRight(doc.Symbol, "\x00")
	doc.Image = strings.TrimSpace(doc.Image)
	return &doc, nil
}
