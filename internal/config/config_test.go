package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/decklive/decklive-bridge/internal/config"
)

func TestEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Plugin != "simulator" {
		t.Errorf("default plugin = %q", cfg.Plugin)
	}
	if cfg.Port != 3000 {
		t.Errorf("default port = %d", cfg.Port)
	}
	if cfg.Deck.LiveThresholdSeconds != 15 {
		t.Errorf("default live threshold = %v", cfg.Deck.LiveThresholdSeconds)
	}
	if cfg.Delivery.BufferSize != 20 {
		t.Errorf("default buffer size = %d", cfg.Delivery.BufferSize)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
plugin: mpd
pluginConfig:
  host: mpd.local
  port: 6601
deck:
  liveThresholdSeconds: 20
delivery:
  endpoint: https://api.example.com/nowplaying
  token: secret
  failureThreshold: 5
port: 8080
debug: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Plugin != "mpd" {
		t.Errorf("plugin = %q", cfg.Plugin)
	}
	if got := cfg.PluginConfig["host"]; got != "mpd.local" {
		t.Errorf("pluginConfig host = %v", got)
	}
	if cfg.Deck.LiveThresholdSeconds != 20 {
		t.Errorf("live threshold = %v", cfg.Deck.LiveThresholdSeconds)
	}
	if cfg.Delivery.Endpoint != "https://api.example.com/nowplaying" {
		t.Errorf("endpoint = %q", cfg.Delivery.Endpoint)
	}
	if cfg.Delivery.FailureThreshold != 5 {
		t.Errorf("failure threshold = %d", cfg.Delivery.FailureThreshold)
	}
	if cfg.Port != 8080 || !cfg.Debug {
		t.Errorf("port = %d debug = %v", cfg.Port, cfg.Debug)
	}
	// Fields the file does not mention keep their defaults.
	if cfg.Delivery.BufferSize != 20 {
		t.Errorf("buffer size = %d", cfg.Delivery.BufferSize)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadRepairsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
deck:
  liveThresholdSeconds: -1
delivery:
  failureThreshold: 0
  bufferSize: -5
port: 0
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Deck.LiveThresholdSeconds <= 0 {
		t.Errorf("live threshold not repaired: %v", cfg.Deck.LiveThresholdSeconds)
	}
	if cfg.Delivery.FailureThreshold != 3 || cfg.Delivery.BufferSize != 20 || cfg.Port != 3000 {
		t.Errorf("invalid values not repaired: %+v port=%d", cfg.Delivery, cfg.Port)
	}
}
