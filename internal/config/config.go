package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the service configuration loaded from YAML and overridden by environment
type Config struct {
	Name     string        `yaml:"name"`
	LogLevel string        `yaml:"log_level"`
	GRPCAddr string        `yaml:"grpc_addr"`
	HTTPAddr string        `yaml:"http_addr"`
	APIToken string        `yaml:"api_token"`
	Storage  StorageConfig `yaml:"storage"`
	Market   MarketConfig  `yaml:"market"`
	Ledger   LedgerConfig  `yaml:"ledger"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type MarketConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	HistoryDays  int           `yaml:"history_days"`
	// HistoryLimit caps the price history per stock; 0 keeps it unbounded
	HistoryLimit int `yaml:"history_limit"`
}

type LedgerConfig struct {
	StartingBalance decimal.Decimal `yaml:"starting_balance"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Name:     "papertrade",
		LogLevel: "info",
		GRPCAddr: ":8080",
		HTTPAddr: ":8081",
		// No default token: the operator sets api_token or API_TOKEN
		APIToken: "",
		Storage: StorageConfig{
			Driver: DriverSQLite,
			DSN:    "papertrade.db",
		},
		Market: MarketConfig{
			TickInterval: 60 * time.Second,
			HistoryDays:  30,
			HistoryLimit: 0,
		},
		Ledger: LedgerConfig{
			StartingBalance: decimal.NewFromInt(1000000),
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		c.GRPCAddr = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("DB_CONN_STR"); v != "" {
		c.Storage.DSN = v
	}

	// Build the postgres DSN from individual vars (Docker friendly)
	if c.Storage.Driver == DriverPostgres && c.Storage.DSN == "" {
		c.Storage.DSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			envOr("DB_HOST", "localhost"),
			envOr("DB_PORT", "5432"),
			envOr("DB_USER", "postgres"),
			envOr("DB_PASSWORD", "postgres"),
			envOr("DB_NAME", "papertrade"),
		)
	}
}

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	if c.GRPCAddr == "" {
		return fmt.Errorf("grpc address cannot be empty")
	}
	if c.APIToken == "" {
		return fmt.Errorf("api token cannot be empty, set api_token or API_TOKEN")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage dsn cannot be empty for %s", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Market.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be greater than 0")
	}
	if c.Market.HistoryDays < 0 {
		return fmt.Errorf("history days cannot be negative")
	}
	if c.Market.HistoryLimit < 0 {
		return fmt.Errorf("history limit cannot be negative")
	}

	if !c.Ledger.StartingBalance.IsPositive() {
		return fmt.Errorf("starting balance must be positive")
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
