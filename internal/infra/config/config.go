// Package config loads application configuration from a JSON file, a .env
// file, and WABOTTLE_* environment variables, in increasing precedence.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/vspok/wabottle/internal/store"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel string `json:"log_level"`

	// Storage
	DBPath string `json:"db_path"`

	// Session
	Session string `json:"session"`

	// Credential import
	CredsFile string `json:"creds_file"`

	// Store behavior
	HistoryCutoffHours   int  `json:"history_cutoff_hours"`
	WindowSize           int  `json:"window_size"`
	DisableChatDelete    bool `json:"disable_chat_delete"`
	DisableMessageDelete bool `json:"disable_message_delete"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		LogLevel: "INFO",
		DBPath:   filepath.Join(homeDir, ".wabottle", "store.db"),
		Session:  "default",
	}
}

// LoadFromFile loads configuration from a JSON file. A missing file yields
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load resolves the effective configuration. A .env file in the working
// directory is folded into the environment first; environment variables
// override file values.
func Load(configPath string) *Config {
	_ = godotenv.Load()

	var cfg *Config
	if configPath != "" {
		loaded, err := LoadFromFile(configPath)
		if err != nil {
			loaded = Default()
		}
		cfg = loaded
	} else {
		cfg = Default()
	}

	if v := os.Getenv("WABOTTLE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WABOTTLE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("WABOTTLE_SESSION"); v != "" {
		cfg.Session = v
	}
	if v := os.Getenv("WABOTTLE_CREDS_FILE"); v != "" {
		cfg.CredsFile = v
	}
	if v := os.Getenv("WABOTTLE_HISTORY_CUTOFF_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			cfg.HistoryCutoffHours = hours
		}
	}
	if v := os.Getenv("WABOTTLE_WINDOW_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.WindowSize = size
		}
	}
	if v := os.Getenv("WABOTTLE_DISABLE_CHAT_DELETE"); v != "" {
		cfg.DisableChatDelete = v == "true" || v == "1"
	}
	if v := os.Getenv("WABOTTLE_DISABLE_MESSAGE_DELETE"); v != "" {
		cfg.DisableMessageDelete = v == "true" || v == "1"
	}

	return cfg
}

// StoreOptions translates the config into store handle options.
func (c *Config) StoreOptions() *store.Options {
	return &store.Options{
		DisableChatDelete:    c.DisableChatDelete,
		DisableMessageDelete: c.DisableMessageDelete,
		HistoryCutoff:        time.Duration(c.HistoryCutoffHours) * time.Hour,
		WindowSize:           c.WindowSize,
	}
}
