package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Defaults() {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
	if cfg.Tick != 15*time.Second {
		t.Errorf("Tick = %v, want 15s", cfg.Tick)
	}
	if cfg.Pins.Light == 0 || cfg.Pins.Pump == 0 {
		t.Error("default pins must be set")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garden.yaml")
	content := `
device: greenhouse
tick: 30s
broker: tcp://10.0.0.5:1883
webhook_url: https://hooks.example.com/abc
pins:
  light: 12
  pump: 19
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "greenhouse" || cfg.Tick != 30*time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Broker != "tcp://10.0.0.5:1883" || cfg.WebhookURL != "https://hooks.example.com/abc" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Pins.Light != 12 || cfg.Pins.Pump != 19 {
		t.Errorf("pins not applied: %+v", cfg.Pins)
	}
	// Fields missing from the file keep their defaults.
	if cfg.HTTPAddr != Defaults().HTTPAddr || cfg.Pins.Trigger != Defaults().Pins.Trigger {
		t.Errorf("absent fields should keep defaults: %+v", cfg)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicit config path that does not exist must error")
	}
}

func TestLoadBadYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garden.yaml")
	if err := os.WriteFile(path, []byte("tick: [not a duration"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("unparseable YAML must error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garden.yaml")
	if err := os.WriteFile(path, []byte("device: fromfile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GARDEN_DEVICE", "fromenv")
	t.Setenv("GARDEN_TICK", "45s")
	t.Setenv("GARDEN_PIN_LIGHT", "21")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "fromenv" {
		t.Errorf("Device = %q, env must beat file", cfg.Device)
	}
	if cfg.Tick != 45*time.Second {
		t.Errorf("Tick = %v, want 45s", cfg.Tick)
	}
	if cfg.Pins.Light != 21 {
		t.Errorf("Pins.Light = %d, want 21", cfg.Pins.Light)
	}
}

func TestEnvIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("GARDEN_TICK", "soon")
	t.Setenv("GARDEN_PIN_PUMP", "thirteen")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tick != Defaults().Tick || cfg.Pins.Pump != Defaults().Pins.Pump {
		t.Errorf("bad env values should fall back to defaults: %+v", cfg)
	}
}

func TestNonPositiveTickErrors(t *testing.T) {
	t.Setenv("GARDEN_TICK", "-5s")
	if _, err := Load(""); err == nil {
		t.Error("negative tick must error")
	}
}
