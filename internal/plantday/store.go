// Package plantday fetches a "plant of the day" from the species API once
// per day and sends its notification at a configurable time. Both jobs are
// date-gated; the notification additionally uses an exclusive marker file so
// only one process sends per calendar day.
package plantday

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Species ID range sampled for the daily plant.
const (
	MinSpeciesID = 1
	MaxSpeciesID = 2999
)

const (
	currentFilename = "plant_of_the_day_current.json"
	usedIDsFilename = "plant_of_the_day_used_ids.json"
	sentPrefix      = "plant_of_the_day_sent_"
)

// Plant is the subset of the species API response we keep.
type Plant struct {
	ID             int      `json:"id"`
	CommonName     string   `json:"common_name"`
	ScientificName []string `json:"scientific_name"`
	Genus          string   `json:"genus"`
	SpeciesEpithet string   `json:"species_epithet"`
	DefaultImage   struct {
		RegularURL string `json:"regular_url"`
	} `json:"default_image"`
}

// Store persists the current plant and the set of used species IDs under one
// directory, plus the per-date notification claim markers.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Current returns the stored plant of the day, or nil if none.
func (s *Store) Current() *Plant {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, currentFilename))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("plantday: could not read current plant: %v", err)
		}
		return nil
	}
	var p Plant
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("plantday: could not parse current plant: %v", err)
		return nil
	}
	return &p
}

// SetCurrent saves the plant of the day.
func (s *Store) SetCurrent(p *Plant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plant: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, currentFilename), data, 0o644); err != nil {
		return fmt.Errorf("write current plant: %w", err)
	}
	return nil
}

type usedIDsDoc struct {
	IDs []int `json:"ids"`
}

// UsedIDs returns the species IDs already used. When every ID in the range
// has been used the set resets to empty.
func (s *Store) UsedIDs() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsedIDs()
}

func (s *Store) loadUsedIDs() map[int]bool {
	data, err := os.ReadFile(filepath.Join(s.dir, usedIDsFilename))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("plantday: could not read used IDs: %v", err)
		}
		return map[int]bool{}
	}
	var doc usedIDsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("plantday: could not parse used IDs: %v", err)
		return map[int]bool{}
	}
	if len(doc.IDs) >= MaxSpeciesID-MinSpeciesID+1 {
		return map[int]bool{}
	}
	used := make(map[int]bool, len(doc.IDs))
	for _, id := range doc.IDs {
		used[id] = true
	}
	return used
}

// AddUsedID marks a species ID as used, resetting the set if it is full.
func (s *Store) AddUsedID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.loadUsedIDs()
	used[id] = true
	if len(used) >= MaxSpeciesID-MinSpeciesID+1 {
		used = map[int]bool{}
	}
	doc := usedIDsDoc{IDs: make([]int, 0, len(used))}
	for id := range used {
		doc.IDs = append(doc.IDs, id)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode used IDs: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, usedIDsFilename), data, 0o644); err != nil {
		return fmt.Errorf("write used IDs: %w", err)
	}
	return nil
}

// ClaimNotifySent claims responsibility for sending today's notification via
// exclusive create of a dated marker file. Returns true if this caller won
// the claim; false if another process (or an earlier run) already holds it.
func (s *Store) ClaimNotifySent(day time.Time) bool {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Printf("plantday: could not create %s: %v", s.dir, err)
		return false
	}
	path := filepath.Join(s.dir, sentPrefix+day.Format("2006-01-02"))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			log.Printf("plantday: could not claim %s: %v", path, err)
		}
		return false
	}
	f.Close()
	return true
}
