// Package alerts implements the threshold alert check: read sensors, compare
// to configured thresholds, and notify on the transition into alarm or back
// to normal. Per-key state is persisted so a restart never re-sends an alert
// for a condition that was already reported.
package alerts

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Key identifies one monitored condition.
type Key string

// The fixed, closed set of alert keys.
const (
	KeyWaterLow      Key = "water_low"
	KeyAirTempHigh   Key = "air_temp_high"
	KeyAirTempLow    Key = "air_temp_low"
	KeyHumidityLow   Key = "humidity_low"
	KeyHumidityHigh  Key = "humidity_high"
	KeyBoardTempHigh Key = "pcb_temp_high"
)

// Keys lists every alert key.
var Keys = []Key{
	KeyWaterLow,
	KeyAirTempHigh,
	KeyAirTempLow,
	KeyHumidityLow,
	KeyHumidityHigh,
	KeyBoardTempHigh,
}

// State is the persisted hysteresis state for one key. InAlarm reflects the
// last computed breach state; cooldown may suppress a send without resetting
// it.
type State struct {
	InAlarm        bool       `json:"in_alarm"`
	LastSentAt     *time.Time `json:"last_sent_at"`
	LastRecoveryAt *time.Time `json:"last_recovery_at"`
}

// StateStore persists per-key alert state as one JSON file guarded by a lock.
type StateStore struct {
	path string
	mu   sync.Mutex
}

// NewStateStore creates a store backed by the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

func (s *StateStore) load() map[Key]State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("alerts: could not read %s: %v", s.path, err)
		}
		return map[Key]State{}
	}
	states := map[Key]State{}
	if err := json.Unmarshal(data, &states); err != nil {
		log.Printf("alerts: could not parse %s: %v", s.path, err)
		return map[Key]State{}
	}
	return states
}

func (s *StateStore) save(states map[Key]State) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("encode alert state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".alerts-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write alert state: %w", err)
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

// Get returns the state for one key, zero-valued if never set.
func (s *StateStore) Get(key Key) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()[key]
}

// SetAlarmSent marks the key as in alarm and stamps LastSentAt.
func (s *StateStore) SetAlarmSent(key Key, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := s.load()
	st := states[key]
	st.InAlarm = true
	st.LastSentAt = &now
	states[key] = st
	return s.save(states)
}

// SetRecoverySent marks the key as out of alarm and stamps LastRecoveryAt.
func (s *StateStore) SetRecoverySent(key Key, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := s.load()
	st := states[key]
	st.InAlarm = false
	st.LastRecoveryAt = &now
	states[key] = st
	return s.save(states)
}

// SetInAlarm updates the flag without touching the sent timestamps (used
// when cooldown suppressed the send).
func (s *StateStore) SetInAlarm(key Key, inAlarm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := s.load()
	st := states[key]
	st.InAlarm = inAlarm
	states[key] = st
	return s.save(states)
}

// CanSendAlert reports whether the cooldown since the last alert send has
// elapsed (or no alert was ever sent).
func (s *StateStore) CanSendAlert(key Key, cooldown time.Duration, now time.Time) bool {
	st := s.Get(key)
	if st.LastSentAt == nil {
		return true
	}
	return now.Sub(*st.LastSentAt) >= cooldown
}

// CanSendRecovery reports whether the cooldown since the last recovery send
// has elapsed (or no recovery was ever sent).
func (s *StateStore) CanSendRecovery(key Key, cooldown time.Duration, now time.Time) bool {
	st := s.Get(key)
	if st.LastRecoveryAt == nil {
		return true
	}
	return now.Sub(*st.LastRecoveryAt) >= cooldown
}

// InAlarmKeys returns the keys currently flagged as in alarm, for the status
// page.
func (s *StateStore) InAlarmKeys() []Key {
	s.mu.Lock()
	states := s.load()
	s.mu.Unlock()

	var keys []Key
	for _, k := range Keys {
		if states[k].InAlarm {
			keys = append(keys, k)
		}
	}
	return keys
}
