// Package sources holds the metadata strategies and bulk token lists the
// resolver walks through.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "tokenlens/1.0"

// Option configures the HTTP-backed sources.
type Option func(*httpSettings)

type httpSettings struct {
	client  *http.Client
	timeout time.Duration
	apiKey  string
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *httpSettings) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(s *httpSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(s *httpSettings) {
		s.apiKey = key
	}
}

func newSettings(defaultTimeout time.Duration, opts []Option) httpSettings {
	s := httpSettings{
		client:  &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// doJSON executes req under the configured timeout and decodes a 2xx JSON
// body into out.
func (s httpSettings) doJSON(ctx context.Context, req *http.Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	requestStart := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%s %s returned %d (latency=%v)", req.Method, req.URL.Redacted(), resp.StatusCode, latency)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Redacted(), err)
	}
	return nil
}
