package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hunterwarburton/tokenlens/internal/solana"
)

// Solana holds RPC settings.
type Solana struct {
	RPCURL        string `yaml:"rpc_url"`
	OffChainLogos bool   `yaml:"offchain_logos"` // fetch the metadata JSON to fill logo URIs
}

// Sources holds the HTTP metadata sources.
type Sources struct {
	APIURL           string        `yaml:"api_url"` // secondary metadata API; empty disables it
	APIKey           string        `yaml:"api_key"`
	RegistryURL      string        `yaml:"registry_url"`
	JupiterURL       string        `yaml:"jupiter_url"`
	ListFetchTimeout time.Duration `yaml:"list_fetch_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// Batch holds ResolveBatch throttling.
type Batch struct {
	Concurrency int           `yaml:"concurrency"`
	Pause       time.Duration `yaml:"pause"`
}

// Redis configures the optional shared cache tier.
type Redis struct {
	Addr     string        `yaml:"addr"` // empty disables the tier
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Telegram holds bot settings.
type Telegram struct {
	Token          string `yaml:"token"`
	AdminUserIDs   string `yaml:"admin_user_ids"`
	AllowedUserIDs string `yaml:"allowed_user_ids"`
}

// Log mirrors logger.Options.
type Log struct {
	Format   string `yaml:"format"`
	LogDir   string `yaml:"log_dir"`
	Level    string `yaml:"level"`
	Compress bool   `yaml:"compress"`
}

// Config represents the application configuration.
type Config struct {
	Solana   Solana   `yaml:"solana"`
	Sources  Sources  `yaml:"sources"`
	Batch    Batch    `yaml:"batch"`
	Redis    Redis    `yaml:"redis"`
	Telegram Telegram `yaml:"telegram"`
	Log      Log      `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Solana: Solana{
			RPCURL:        solana.DefaultMainnetEndpoint,
			OffChainLogos: true,
		},
		Sources: Sources{
			RegistryURL:      "https://cdn.jsdelivr.net/gh/solana-labs/token-list@main/src/tokens/solana.tokenlist.json",
			JupiterURL:       "https://token.jup.ag/strict",
			ListFetchTimeout: 10 * time.Second,
			RequestTimeout:   15 * time.Second,
		},
		Batch: Batch{
			Concurrency: 5,
			Pause:       100 * time.Millisecond,
		},
		Redis: Redis{
			TTL: 24 * time.Hour,
		},
		Log: Log{
			Format: "console",
			Level:  "info",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and then the environment (a .env file is loaded first when present).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.Solana.RPCURL == "" {
		c.Solana.RPCURL = solana.DefaultMainnetEndpoint
	}
	if c.Sources.ListFetchTimeout <= 0 {
		c.Sources.ListFetchTimeout = 10 * time.Second
	}
	if c.Sources.RequestTimeout <= 0 {
		c.Sources.RequestTimeout = 15 * time.Second
	}
	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = 5
	}
	if c.Batch.Pause < 0 {
		c.Batch.Pause = 0
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 24 * time.Hour
	}
}
