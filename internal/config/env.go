package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if err := loadDotEnv(); err != nil {
		return err
	}

	c.Solana.RPCURL = getEnvWithDefault("SOLANA_RPC_URL", c.Solana.RPCURL)
	c.Sources.APIURL = getEnvWithDefault("TOKEN_API_URL", c.Sources.APIURL)
	c.Sources.APIKey = getEnvWithDefault("TOKEN_API_KEY", c.Sources.APIKey)
	c.Sources.RegistryURL = getEnvWithDefault("TOKEN_REGISTRY_URL", c.Sources.RegistryURL)
	c.Sources.JupiterURL = getEnvWithDefault("JUPITER_LIST_URL", c.Sources.JupiterURL)
	c.Redis.Addr = getEnvWithDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvWithDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Telegram.Token = getEnvWithDefault("TG_BOT_TOKEN", c.Telegram.Token)
	c.Telegram.AdminUserIDs = getEnvWithDefault("ADMIN_USER_IDS", c.Telegram.AdminUserIDs)
	c.Telegram.AllowedUserIDs = getEnvWithDefault("ALLOWED_USER_IDS", c.Telegram.AllowedUserIDs)
	c.Log.Level = getEnvWithDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvWithDefault("LOG_FORMAT", c.Log.Format)
	c.Log.LogDir = getEnvWithDefault("LOG_DIR", c.Log.LogDir)

	var err error
	if c.Sources.ListFetchTimeout, err = durationEnv("LIST_FETCH_TIMEOUT", c.Sources.ListFetchTimeout); err != nil {
		return err
	}
	if c.Batch.Pause, err = durationEnv("BATCH_PAUSE", c.Batch.Pause); err != nil {
		return err
	}
	if c.Redis.TTL, err = durationEnv("REDIS_TTL", c.Redis.TTL); err != nil {
		return err
	}
	if c.Batch.Concurrency, err = intEnv("BATCH_CONCURRENCY", c.Batch.Concurrency); err != nil {
		return err
	}
	if c.Redis.DB, err = intEnv("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.Solana.OffChainLogos, err = boolEnv("OFFCHAIN_LOGOS", c.Solana.OffChainLogos); err != nil {
		return err
	}
	if c.Log.Compress, err = boolEnv("LOG_COMPRESS", c.Log.Compress); err != nil {
		return err
	}
	return nil
}

// getEnvWithDefault gets an environment variable or returns a default value.
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
