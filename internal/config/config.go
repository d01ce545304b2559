// Package config loads the bridge's YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/decklive/decklive-bridge/internal/domain/deck"
	"github.com/decklive/decklive-bridge/internal/infra/delivery"
)

// Delivery configures the outbound notification endpoint and its
// resilience knobs.
type Delivery struct {
	Endpoint         string `yaml:"endpoint"`
	Token            string `yaml:"token"`
	FailureThreshold int    `yaml:"failureThreshold"`
	CooldownSeconds  int    `yaml:"cooldownSeconds"`
	BufferSize       int    `yaml:"bufferSize"`
}

// Settings is the full configuration file.
type Settings struct {
	// Plugin selects the equipment integration to start. PluginConfig
	// is handed to it verbatim; keys are plugin-specific.
	Plugin       string         `yaml:"plugin"`
	PluginConfig map[string]any `yaml:"pluginConfig"`

	Deck     deck.Config `yaml:"deck"`
	Delivery Delivery    `yaml:"delivery"`

	// Port is the local HTTP and Socket.io listener.
	Port  int  `yaml:"port"`
	Debug bool `yaml:"debug"`
}

// Default returns the settings used when no config file is given.
func Default() Settings {
	return Settings{
		Plugin: "simulator",
		Deck:   deck.DefaultConfig(),
		Delivery: Delivery{
			FailureThreshold: delivery.DefaultFailureThreshold,
			CooldownSeconds:  30,
			BufferSize:       delivery.DefaultBufferCapacity,
		},
		Port: 3000,
	}
}

// Load reads path into Settings on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Settings, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Deck = cfg.Deck.Normalize()
	if cfg.Delivery.FailureThreshold <= 0 {
		cfg.Delivery.FailureThreshold = delivery.DefaultFailureThreshold
	}
	if cfg.Delivery.CooldownSeconds <= 0 {
		cfg.Delivery.CooldownSeconds = 30
	}
	if cfg.Delivery.BufferSize <= 0 {
		cfg.Delivery.BufferSize = delivery.DefaultBufferCapacity
	}
	if cfg.Port <= 0 {
		cfg.Port = 3000
	}
	return cfg, nil
}
