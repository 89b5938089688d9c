package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a rule id does not exist.
var ErrNotFound = errors.New("rules: rule not found")

// Store persists the rule document as a single JSON file. Every operation is
// a full load-modify-save under one lock, so concurrent API handlers and the
// scheduler never see a partial write. A corrupt or missing file loads as the
// empty default document; save failures are returned to the caller.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the current document. On read or decode failure it logs and
// returns the empty default so the scheduler keeps running.
func (s *Store) Load() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// load reads the document without locking. Caller must hold s.mu.
func (s *Store) load() Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("rules: could not read %s: %v", s.path, err)
		}
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("rules: could not parse %s: %v", s.path, err)
		return Document{}
	}
	return doc
}

// save writes the whole document atomically: temp file in the same directory,
// then rename. Caller must hold s.mu.
func (s *Store) save(doc Document) error {
	if doc.Rules == nil {
		doc.Rules = []Rule{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".rules-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write rules: %w", err)
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

// Save replaces the whole document.
func (s *Store) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

// AddRule appends a rule, assigning an id if missing, and returns it as stored.
func (s *Store) AddRule(r Rule) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	doc := s.load()
	doc.Rules = append(doc.Rules, r)
	if err := s.save(doc); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// UpdateRule applies a patch to the rule with the given id. Returns
// ErrNotFound if no rule has that id.
func (s *Store) UpdateRule(id string, p Patch) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	for i, r := range doc.Rules {
		if r.ID == id {
			doc.Rules[i] = r.applied(p)
			if err := s.save(doc); err != nil {
				return Rule{}, err
			}
			return doc.Rules[i], nil
		}
	}
	return Rule{}, ErrNotFound
}

// DeleteRule removes the rule with the given id. Returns false if not found.
func (s *Store) DeleteRule(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	for i, r := range doc.Rules {
		if r.ID == id {
			doc.Rules = append(doc.Rules[:i], doc.Rules[i+1:]...)
			if err := s.save(doc); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// SetLightPausedUntil sets or clears the light rule pause override.
func (s *Store) SetLightPausedUntil(t *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	doc.LightPausedUntil = t
	return s.save(doc)
}

// SetPumpPausedUntil sets or clears the pump rule pause override.
func (s *Store) SetPumpPausedUntil(t *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	doc.PumpPausedUntil = t
	return s.save(doc)
}

// SetManualPumpOffAt sets or clears the one-shot manual pump off time.
func (s *Store) SetManualPumpOffAt(t *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	doc.ManualPumpOffAt = t
	return s.save(doc)
}
