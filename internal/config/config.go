package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// LootLocker server API
	ServerAPIKey      string        `yaml:"server_api_key"`
	GameVersion       string        `yaml:"game_version"`
	GameID            string        `yaml:"game_id"`
	CurrencyID        string        `yaml:"currency_id"`
	LootLockerURL     string        `yaml:"lootlocker_api_url"`
	LootLockerVersion string        `yaml:"lootlocker_version"`
	UpstreamTimeout   time.Duration `yaml:"upstream_timeout"`

	// Request authentication
	HMACSecret      string        `yaml:"hmac_secret"`
	FreshnessWindow time.Duration `yaml:"freshness_window"`
	ReplayRetention time.Duration `yaml:"replay_retention"`

	// Web Server
	Port               string   `yaml:"port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// Load reads configuration from .env, an optional YAML file and the
// environment, in increasing order of precedence. An empty path falls back
// to CONFIG_FILE.
func Load(path string) (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		GameVersion:        "1.0.0.0",
		LootLockerURL:      "https://api.lootlocker.io",
		LootLockerVersion:  "2021-03-01",
		UpstreamTimeout:    30 * time.Second,
		FreshnessWindow:    30 * time.Second,
		Port:               "3000",
		CORSAllowedOrigins: []string{"*"},
	}
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.ServerAPIKey == "" {
		return fmt.Errorf("SERVER_API_KEY is required")
	}
	if c.CurrencyID == "" {
		return fmt.Errorf("CURRENCY_ID is required")
	}
	if c.HMACSecret == "" {
		return fmt.Errorf("HMAC_SECRET is required")
	}
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("FRESHNESS_WINDOW must be positive")
	}
	if c.ReplayRetention < 0 {
		return fmt.Errorf("REPLAY_RETENTION must not be negative")
	}
	// A body timestamped one window ahead stays fresh for two windows after it
	// is committed, so its key must outlive that.
	if c.ReplayRetention > 0 && c.ReplayRetention < 2*c.FreshnessWindow {
		return fmt.Errorf("REPLAY_RETENTION must be 0 or at least %s (twice FRESHNESS_WINDOW)", 2*c.FreshnessWindow)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.ServerAPIKey, "SERVER_API_KEY")
	setString(&c.GameVersion, "GAME_VERSION")
	setString(&c.GameID, "GAME_ID")
	setString(&c.CurrencyID, "CURRENCY_ID")
	setString(&c.LootLockerURL, "LOOTLOCKER_API_URL")
	setString(&c.LootLockerVersion, "LOOTLOCKER_VERSION")
	setString(&c.HMACSecret, "HMAC_SECRET")
	setString(&c.Port, "PORT")

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}

	for key, dst := range map[string]*time.Duration{
		"UPSTREAM_TIMEOUT": &c.UpstreamTimeout,
		"FRESHNESS_WINDOW": &c.FreshnessWindow,
		"REPLAY_RETENTION": &c.ReplayRetention,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
