package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Load reads the config file at path. An empty path means the default
// location, ~/.migrator/config.json.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".migrator", "config.json")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes JSON config from r on top of the defaults, then applies
// environment overrides.
func Parse(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied, for
// callers running without a config file.
func FromEnv() *Config {
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides applies MIGRATOR_-prefixed environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]*string{
		"MIGRATOR_PLATFORM":       &cfg.Platform,
		"MIGRATOR_DISCORD_TOKEN":  &cfg.Discord.Token,
		"MIGRATOR_TELEGRAM_TOKEN": &cfg.Telegram.Token,
		"MIGRATOR_CHANNEL_ID":     &cfg.ChannelID,
		"MIGRATOR_EXPORT_FILE":    &cfg.ExportFile,
	}

	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}
}

// PlatformConfig returns the raw JSON config blob for the selected
// platform, suitable for the platform factory registry.
func (c *Config) PlatformConfig() (string, json.RawMessage, error) {
	var (
		raw []byte
		err error
	)
	switch c.Platform {
	case "discord", "":
		raw, err = json.Marshal(c.Discord)
		return "discord", raw, err
	case "telegram":
		raw, err = json.Marshal(c.Telegram)
		return "telegram", raw, err
	default:
		return "", nil, fmt.Errorf("unknown platform %q", c.Platform)
	}
}
