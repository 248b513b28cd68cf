package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project  string         `yaml:"project"`
	Version  int            `yaml:"version"`
	Session  string         `yaml:"session"`
	Store    StoreConfig    `yaml:"store"`
	LLM      LLMConfig      `yaml:"llm"`
	Scenario ScenarioConfig `yaml:"scenario"`
	Rescan   RescanConfig   `yaml:"rescan"`
	Persist  PersistConfig  `yaml:"persist"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

type StoreConfig struct {
	Backend    string `yaml:"backend"` // "remote" or "postgres"
	URL        string `yaml:"url"`
	Token      string `yaml:"token"`
	DSN        string `yaml:"dsn"`
	Collection string `yaml:"collection"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

type ScenarioConfig struct {
	// Preamble is scenario-specific text placed verbatim ahead of the
	// generic extraction instructions.
	Preamble string `yaml:"preamble"`
}

type RescanConfig struct {
	Window     int  `yaml:"window"`
	BlocksOnly bool `yaml:"blocks_only"`
}

type PersistConfig struct {
	DebounceSeconds int `yaml:"debounce_seconds"`
}

type SnapshotConfig struct {
	Path string `yaml:"path"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	switch cfg.Store.Backend {
	case "remote":
		if strings.TrimSpace(cfg.Store.URL) == "" {
			return fmt.Errorf("store.url is required for the remote backend")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required for the postgres backend")
		}
	case "":
		return fmt.Errorf("store.backend is required")
	default:
		return fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
	if cfg.Rescan.Window < 0 {
		return fmt.Errorf("rescan.window must not be negative")
	}
	if cfg.Persist.DebounceSeconds < 0 {
		return fmt.Errorf("persist.debounce_seconds must not be negative")
	}
	return nil
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Session == "" {
		cfg.Session = "default"
	}
	if cfg.Rescan.Window == 0 {
		cfg.Rescan.Window = 30
	}
	if cfg.Persist.DebounceSeconds == 0 {
		cfg.Persist.DebounceSeconds = 4
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = "chronicle.db"
	}
}

// Debounce returns the persistence quiet period as a duration.
func (c *ProjectConfig) Debounce() time.Duration {
	return time.Duration(c.Persist.DebounceSeconds) * time.Second
}
