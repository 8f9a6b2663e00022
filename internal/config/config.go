// Package config defines the service configuration. Fields are populated
// from a TOML file and then overridden by PARI_* environment variables, so
// env-only deployments work without any file on disk.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Ledger   LedgerConfig   `toml:"ledger"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `toml:"port"`
}

// DatabaseConfig holds PostgreSQL connection parameters. An empty URL
// selects the in-memory store.
type DatabaseConfig struct {
	URL           string `toml:"url"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the optional read-through cache parameters.
type RedisConfig struct {
	URL             string `toml:"url"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

// LedgerConfig holds the wagering engine parameters.
type LedgerConfig struct {
	// Resolver is the single identity authorized to create and resolve
	// markets. Required.
	Resolver string `toml:"resolver"`

	// MinBet is the smallest accepted stake, in base units.
	MinBet uint64 `toml:"min_bet"`

	// MaxStakePerMarket caps one participant's combined stake in a single
	// market. Zero disables the limit.
	MaxStakePerMarket uint64 `toml:"max_stake_per_market"`

	// MaxPool caps a market's total pool. Zero disables the limit.
	MaxPool uint64 `toml:"max_pool"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{RunMigrations: true},
		Redis:    RedisConfig{CacheTTLSeconds: 30},
		Ledger:   LedgerConfig{MinBet: 1},
		LogLevel: "info",
	}
}

// Load reads the TOML file at path (skipped when path is empty or the file
// does not exist), merges it on top of the defaults, and applies PARI_*
// environment overrides. The caller should invoke Validate afterwards.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Validate checks the loaded configuration for operability.
func (c *Config) Validate() error {
	if c.Ledger.Resolver == "" {
		return fmt.Errorf("config: ledger.resolver (PARI_RESOLVER) is required")
	}
	if c.Ledger.MinBet == 0 {
		return fmt.Errorf("config: ledger.min_bet must be at least 1")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("config: server.port is required")
	}
	return nil
}

// applyEnvOverrides overwrites fields from well-known PARI_* variables
// when set, letting operators inject settings at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Port, "PARI_PORT")
	setStr(&cfg.Database.URL, "PARI_DATABASE_URL")
	setBool(&cfg.Database.RunMigrations, "PARI_RUN_MIGRATIONS")
	setStr(&cfg.Redis.URL, "PARI_REDIS_URL")
	setInt(&cfg.Redis.CacheTTLSeconds, "PARI_CACHE_TTL_SECONDS")
	setStr(&cfg.Ledger.Resolver, "PARI_RESOLVER")
	setUint(&cfg.Ledger.MinBet, "PARI_MIN_BET")
	setUint(&cfg.Ledger.MaxStakePerMarket, "PARI_MAX_STAKE_PER_MARKET")
	setUint(&cfg.Ledger.MaxPool, "PARI_MAX_POOL")
	setStr(&cfg.LogLevel, "PARI_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
