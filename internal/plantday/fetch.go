package plantday

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
)

// DefaultAPIBase is the species details endpoint.
const DefaultAPIBase = "https://perenual.com/api/v2/species/details"

// Fetcher pulls a random unused species from the API and stores it as the
// current plant of the day.
type Fetcher struct {
	store   *Store
	baseURL string
	apiKey  string
	client  *http.Client
	pick    func(n int) int // index picker, injectable for tests
}

// NewFetcher creates a fetcher. An empty apiKey disables fetching (Fetch
// becomes a logged no-op).
func NewFetcher(store *Store, baseURL, apiKey string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	return &Fetcher{
		store:   store,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		pick:    rand.Intn,
	}
}

// Fetch picks a random unused species ID, fetches it, and stores it as the
// current plant. Returns the stored plant, or nil if fetching is disabled.
func (f *Fetcher) Fetch() (*Plant, error) {
	if f.apiKey == "" {
		log.Printf("plantday: API key not set; skipping fetch")
		return nil, nil
	}

	used := f.store.UsedIDs()
	var available []int
	for id := MinSpeciesID; id <= MaxSpeciesID; id++ {
		if !used[id] {
			available = append(available, id)
		}
	}
	if len(available) == 0 {
		// UsedIDs resets on exhaustion, so this only happens on a corrupt
		// store; start over.
		for id := MinSpeciesID; id <= MaxSpeciesID; id++ {
			available = append(available, id)
		}
	}
	speciesID := available[f.pick(len(available))]

	url := fmt.Sprintf("%s/%d?key=%s", f.baseURL, speciesID, f.apiKey)
	resp, err := f.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch species %d: %w", speciesID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch species %d: status %d", speciesID, resp.StatusCode)
	}

	var p Plant
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode species %d: %w", speciesID, err)
	}
	if p.ID == 0 {
		p.ID = speciesID
	}

	if err := f.store.AddUsedID(speciesID); err != nil {
		log.Printf("plantday: could not record used ID %d: %v", speciesID, err)
	}
	if err := f.store.SetCurrent(&p); err != nil {
		return nil, fmt.Errorf("store plant: %w", err)
	}
	log.Printf("plantday: plant of the day set to species %d (%s)", speciesID, p.CommonName)
	return &p, nil
}
