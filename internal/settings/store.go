package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the settings document as one JSON file with the same
// load-modify-save discipline as the rule store.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Get returns the current settings. A missing or corrupt file yields the
// defaults.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() Settings {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("settings: could not read %s: %v", s.path, err)
		}
		return Defaults()
	}
	// Start from defaults so fields absent in an older file keep sane values.
	cfg := Defaults()
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("settings: could not parse %s: %v", s.path, err)
		return Defaults()
	}
	cfg.CooldownMinutes = ClampCooldown(cfg.CooldownMinutes)
	return cfg
}

func (s *Store) save(cfg Settings) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Update applies a patch and returns the stored result.
func (s *Store) Update(p Patch) (Settings, error) {
	if err := p.validate(); err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.load().applied(p)
	if err := s.save(cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// validate rejects out-of-range values at the mutation boundary so the
// engines can assume persisted settings are well-formed.
func (p Patch) validate() error {
	checkPct := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("settings: %s must be 0-100, got %v", name, *v)
		}
		return nil
	}
	if err := checkPct("humidity_low_alert_threshold", p.HumidityLowAlertPct); err != nil {
		return err
	}
	if err := checkPct("humidity_high_alert_threshold", p.HumidityHighAlertPct); err != nil {
		return err
	}
	if p.WaterAlertThresholdCm != nil && *p.WaterAlertThresholdCm <= 0 {
		return fmt.Errorf("settings: water_alert_threshold must be positive, got %v", *p.WaterAlertThresholdCm)
	}
	if p.PlantNotifyTime != nil && !validClock(*p.PlantNotifyTime) {
		return fmt.Errorf("settings: plant_notify_time must be HH:MM, got %q", *p.PlantNotifyTime)
	}
	return nil
}

func validClock(s string) bool {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return false
	}
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}
