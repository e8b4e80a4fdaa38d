package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of the position ledger.
type Config struct {
	Accounts []AccountConfig `json:"accounts" yaml:"accounts"`
	Store    StoreConfig     `json:"store" yaml:"store"`
	Journal  JournalConfig   `json:"journal" yaml:"journal"`
	Log      LogConfig       `json:"log" yaml:"log"`
	Metrics  MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// AccountConfig names an account known up front.
type AccountConfig struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// StoreConfig selects where ledger snapshots are persisted.
type StoreConfig struct {
	Type   string      `json:"type" yaml:"type"` // "sqlite", "postgres" or "memory"
	DBPath string      `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DSN    string      `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Redis  RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// RedisConfig enables the read-through snapshot cache when Addr is set.
type RedisConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	TTL  string `json:"ttl,omitempty" yaml:"ttl,omitempty"` // e.g. "5m"
}

// ParseTTL converts the ttl string to a time.Duration.
func (rc RedisConfig) ParseTTL() (time.Duration, error) {
	if rc.TTL == "" {
		return 5 * time.Minute, nil
	}
	return time.ParseDuration(rc.TTL)
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type      string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	PnLFile   string `json:"pnl_file,omitempty" yaml:"pnl_file,omitempty"`
	DealsFile string `json:"deals_file,omitempty" yaml:"deals_file,omitempty"`
	DBPath    string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file, YAML for .yaml/.yml and JSON
// otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads envFile (ignored when missing) and then overrides fields
// from SPM_* environment variables. Variables already set in the process
// environment win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if v := os.Getenv("SPM_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("SPM_STORE_DB_PATH"); v != "" {
		c.Store.DBPath = v
	}
	if v := os.Getenv("SPM_REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("SPM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return c.Validate()
}

// Account returns the configured account with the given id.
func (c *Config) Account(id string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.ID == "" {
			return fmt.Errorf("accounts[%d].id is required", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate account id: %s", a.ID)
		}
		seen[a.ID] = true
	}

	switch c.Store.Type {
	case "sqlite":
		if c.Store.DBPath == "" {
			return fmt.Errorf("store db_path required for sqlite type")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store dsn required for postgres type")
		}
	case "memory":
	default:
		return fmt.Errorf("store.type must be 'sqlite', 'postgres' or 'memory'")
	}
	if _, err := c.Store.Redis.ParseTTL(); err != nil {
		return fmt.Errorf("store.redis.ttl: %w", err)
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.PnLFile == "" || c.Journal.DealsFile == "" {
			return fmt.Errorf("journal pnl_file and deals_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Accounts: []AccountConfig{
			{ID: "0", Name: "default"},
		},
		Store: StoreConfig{
			Type:   "sqlite",
			DBPath: "./positions.sqlite",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./journal.sqlite",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
