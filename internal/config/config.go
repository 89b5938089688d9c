// Package config resolves the daemon configuration. Precedence, highest
// first: command-line flags (wired up in main), environment variables,
// the optional YAML config file, built-in defaults. A .env file in the
// working directory is loaded into the environment when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/garden-controller/internal/hardware"
)

// Config is the resolved daemon configuration before flag overrides.
type Config struct {
	Device   string
	Tick     time.Duration
	HTTPAddr string
	Broker   string
	DataDir  string

	WebhookURL  string
	PlantAPIKey string

	Pins PinConfig
}

// PinConfig holds the BCM pin assignments.
type PinConfig struct {
	Light   int
	Pump    int
	Trigger int
	Echo    int
}

// fileConfig is the YAML shape of the config file. Absent fields leave the
// corresponding Config value untouched; the tick is a duration string like
// "15s".
type fileConfig struct {
	Device   *string `yaml:"device"`
	Tick     *string `yaml:"tick"`
	HTTPAddr *string `yaml:"http_addr"`
	Broker   *string `yaml:"broker"`
	DataDir  *string `yaml:"data_dir"`

	WebhookURL  *string `yaml:"webhook_url"`
	PlantAPIKey *string `yaml:"plant_api_key"`

	Pins struct {
		Light   *int `yaml:"light"`
		Pump    *int `yaml:"pump"`
		Trigger *int `yaml:"trigger"`
		Echo    *int `yaml:"echo"`
	} `yaml:"pins"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Device:   "garden",
		Tick:     15 * time.Second,
		HTTPAddr: ":8080",
		Broker:   "tcp://192.168.1.200:1883",
		DataDir:  "/var/lib/garden-controller",
		Pins: PinConfig{
			Light:   hardware.DefaultPinLight,
			Pump:    hardware.DefaultPinPump,
			Trigger: hardware.DefaultPinTrigger,
			Echo:    hardware.DefaultPinEcho,
		},
	}
}

// Load resolves the configuration from defaults, the YAML file at path (if
// path is non-empty the file must exist; if empty, no file is read), and
// environment variables. A .env file is loaded first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if err := fc.apply(&cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	cfg.Device = getenvDefault("GARDEN_DEVICE", cfg.Device)
	cfg.Tick = getenvDuration("GARDEN_TICK", cfg.Tick)
	cfg.HTTPAddr = getenvDefault("GARDEN_HTTP_ADDR", cfg.HTTPAddr)
	cfg.Broker = getenvDefault("GARDEN_BROKER", cfg.Broker)
	cfg.DataDir = getenvDefault("GARDEN_DATA_DIR", cfg.DataDir)
	cfg.WebhookURL = getenvDefault("GARDEN_WEBHOOK_URL", cfg.WebhookURL)
	cfg.PlantAPIKey = getenvDefault("PLANT_API_KEY", cfg.PlantAPIKey)
	cfg.Pins.Light = getenvInt("GARDEN_PIN_LIGHT", cfg.Pins.Light)
	cfg.Pins.Pump = getenvInt("GARDEN_PIN_PUMP", cfg.Pins.Pump)
	cfg.Pins.Trigger = getenvInt("GARDEN_PIN_TRIGGER", cfg.Pins.Trigger)
	cfg.Pins.Echo = getenvInt("GARDEN_PIN_ECHO", cfg.Pins.Echo)

	if cfg.Tick <= 0 {
		return cfg, fmt.Errorf("config: tick must be positive, got %s", cfg.Tick)
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	if fc.Device != nil {
		cfg.Device = *fc.Device
	}
	if fc.Tick != nil {
		d, err := time.ParseDuration(*fc.Tick)
		if err != nil {
			return fmt.Errorf("tick: %w", err)
		}
		cfg.Tick = d
	}
	if fc.HTTPAddr != nil {
		cfg.HTTPAddr = *fc.HTTPAddr
	}
	if fc.Broker != nil {
		cfg.Broker = *fc.Broker
	}
	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.WebhookURL != nil {
		cfg.WebhookURL = *fc.WebhookURL
	}
	if fc.PlantAPIKey != nil {
		cfg.PlantAPIKey = *fc.PlantAPIKey
	}
	if fc.Pins.Light != nil {
		cfg.Pins.Light = *fc.Pins.Light
	}
	if fc.Pins.Pump != nil {
		cfg.Pins.Pump = *fc.Pins.Pump
	}
	if fc.Pins.Trigger != nil {
		cfg.Pins.Trigger = *fc.Pins.Trigger
	}
	if fc.Pins.Echo != nil {
		cfg.Pins.Echo = *fc.Pins.Echo
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
