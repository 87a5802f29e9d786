package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if err := validateURL("solana.rpc_url", c.Solana.RPCURL, true); err != nil {
		return err
	}
	if err := validateURL("sources.api_url", c.Sources.APIURL, false); err != nil {
		return err
	}
	if err := validateURL("sources.registry_url", c.Sources.RegistryURL, false); err != nil {
		return err
	}
	if err := validateURL("sources.jupiter_url", c.Sources.JupiterURL, false); err != nil {
		return err
	}
	if c.Batch.Concurrency > 64 {
		return fmt.Errorf("batch.concurrency must be at most 64, got %d", c.Batch.Concurrency)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be non-negative, got %d", c.Redis.DB)
	}
	return nil
}

func validateURL(field, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}
