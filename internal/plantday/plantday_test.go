package plantday

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeNotifier records sent messages.
type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Send(text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func speciesServer(t *testing.T, plant Plant) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(plant)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStoreCurrentRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	if s.Current() != nil {
		t.Error("empty store should have no current plant")
	}

	p := &Plant{ID: 42, CommonName: "basil", Genus: "Ocimum", SpeciesEpithet: "basilicum"}
	if err := s.SetCurrent(p); err != nil {
		t.Fatal(err)
	}
	got := s.Current()
	if got == nil || got.ID != 42 || got.CommonName != "basil" {
		t.Errorf("Current() = %+v, want %+v", got, p)
	}
}

func TestUsedIDsResetWhenFull(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.AddUsedID(7); err != nil {
		t.Fatal(err)
	}
	if !s.UsedIDs()[7] {
		t.Error("id 7 should be marked used")
	}

	// Filling the whole range resets the set.
	for id := MinSpeciesID; id <= MaxSpeciesID; id++ {
		if err := s.AddUsedID(id); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(s.UsedIDs()); got != 0 {
		t.Errorf("full set should reset, got %d ids", got)
	}
}

func TestClaimNotifySentExactlyOnce(t *testing.T) {
	s := NewStore(t.TempDir())
	day := time.Date(2026, 6, 15, 9, 35, 0, 0, time.UTC)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.ClaimNotifySent(day) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("expected exactly one claim winner, got %d", wins)
	}

	// A different date is a fresh claim.
	if !s.ClaimNotifySent(day.AddDate(0, 0, 1)) {
		t.Error("next day should be claimable")
	}
}

func TestFetchStoresPlantAndUsedID(t *testing.T) {
	srv := speciesServer(t, Plant{CommonName: "mint", Genus: "Mentha", SpeciesEpithet: "spicata"})
	store := NewStore(t.TempDir())
	f := NewFetcher(store, srv.URL, "test-key")
	f.pick = func(n int) int { return 0 } // deterministic: species ID 1

	p, err := f.Fetch()
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.CommonName != "mint" {
		t.Fatalf("Fetch() = %+v", p)
	}
	if p.ID != 1 {
		t.Errorf("plant without an id should inherit the species id, got %d", p.ID)
	}
	if !store.UsedIDs()[1] {
		t.Error("fetched species id should be marked used")
	}
	if got := store.Current(); got == nil || got.CommonName != "mint" {
		t.Errorf("Current() = %+v", got)
	}
}

func TestFetchWithoutAPIKeyIsNoOp(t *testing.T) {
	f := NewFetcher(NewStore(t.TempDir()), "http://unused.invalid", "")
	p, err := f.Fetch()
	if err != nil || p != nil {
		t.Errorf("Fetch() = (%+v, %v), want (nil, nil)", p, err)
	}
}

func TestFetchSkipsUsedIDs(t *testing.T) {
	srv := speciesServer(t, Plant{CommonName: "sage"})
	store := NewStore(t.TempDir())
	if err := store.AddUsedID(1); err != nil {
		t.Fatal(err)
	}
	f := NewFetcher(store, srv.URL, "test-key")
	f.pick = func(n int) int { return 0 }

	p, err := f.Fetch()
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != 2 {
		t.Errorf("first available id should be 2, got %d", p.ID)
	}
}

func TestRunnerNotifyWindow(t *testing.T) {
	srv := speciesServer(t, Plant{CommonName: "thyme"})
	store := NewStore(t.TempDir())
	fetcher := NewFetcher(store, srv.URL, "test-key")
	fetcher.pick = func(n int) int { return 0 }
	notifier := &fakeNotifier{}
	r := NewRunner(store, fetcher, notifier, func() string { return "09:35" })

	if err := store.SetCurrent(&Plant{CommonName: "thyme"}); err != nil {
		t.Fatal(err)
	}

	// Outside the window: nothing.
	r.Run(time.Date(2026, 6, 15, 9, 34, 0, 0, time.UTC))
	r.Run(time.Date(2026, 6, 15, 9, 37, 0, 0, time.UTC))
	if len(notifier.messages) != 0 {
		t.Fatalf("notified outside window: %v", notifier.messages)
	}

	// Inside: exactly one send, even across repeated ticks.
	r.Run(time.Date(2026, 6, 15, 9, 35, 15, 0, time.UTC))
	r.Run(time.Date(2026, 6, 15, 9, 36, 30, 0, time.UTC))
	if len(notifier.messages) != 1 {
		t.Fatalf("want one notification, got %d", len(notifier.messages))
	}
	if !strings.Contains(notifier.messages[0], "thyme") {
		t.Errorf("message should name the plant: %q", notifier.messages[0])
	}

	// Next day is a fresh send.
	r.Run(time.Date(2026, 6, 16, 9, 35, 0, 0, time.UTC))
	if len(notifier.messages) != 2 {
		t.Errorf("want a second notification the next day, got %d", len(notifier.messages))
	}
}

func TestRunnerNotifyFetchesInlineWhenNoCurrentPlant(t *testing.T) {
	srv := speciesServer(t, Plant{CommonName: "rosemary"})
	store := NewStore(t.TempDir())
	fetcher := NewFetcher(store, srv.URL, "test-key")
	fetcher.pick = func(n int) int { return 0 }
	notifier := &fakeNotifier{}
	r := NewRunner(store, fetcher, notifier, func() string { return "09:35" })

	r.Run(time.Date(2026, 6, 15, 9, 35, 0, 0, time.UTC))
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "rosemary") {
		t.Errorf("inline fetch should feed the notification, got %v", notifier.messages)
	}
}

func TestRunnerClaimBlocksSecondProcess(t *testing.T) {
	dir := t.TempDir()
	srv := speciesServer(t, Plant{CommonName: "oregano"})
	now := time.Date(2026, 6, 15, 9, 35, 0, 0, time.UTC)

	n1 := &fakeNotifier{}
	store1 := NewStore(dir)
	f1 := NewFetcher(store1, srv.URL, "test-key")
	f1.pick = func(n int) int { return 0 }
	NewRunner(store1, f1, n1, func() string { return "09:35" }).Run(now)

	// A second runner over the same directory simulates another process.
	n2 := &fakeNotifier{}
	store2 := NewStore(dir)
	f2 := NewFetcher(store2, srv.URL, "test-key")
	f2.pick = func(n int) int { return 0 }
	NewRunner(store2, f2, n2, func() string { return "09:35" }).Run(now)

	if len(n1.messages) != 1 || len(n2.messages) != 0 {
		t.Errorf("claim should allow one sender: first=%d second=%d", len(n1.messages), len(n2.messages))
	}
}

func TestRunnerFetchWindow(t *testing.T) {
	srv := speciesServer(t, Plant{CommonName: "chive"})
	store := NewStore(t.TempDir())
	fetcher := NewFetcher(store, srv.URL, "test-key")
	fetcher.pick = func(n int) int { return 0 }
	r := NewRunner(store, fetcher, &fakeNotifier{}, func() string { return "09:35" })

	r.Run(time.Date(2026, 6, 15, 0, 1, 0, 0, time.UTC))
	if got := store.Current(); got == nil || got.CommonName != "chive" {
		t.Fatalf("midnight window should fetch, Current() = %+v", got)
	}

	// Same day, repeated window ticks: no second fetch even if the store
	// is cleared.
	if err := store.SetCurrent(&Plant{CommonName: "placeholder"}); err != nil {
		t.Fatal(err)
	}
	r.Run(time.Date(2026, 6, 15, 0, 1, 30, 0, time.UTC))
	if got := store.Current(); got.CommonName != "placeholder" {
		t.Error("fetch job must run once per day")
	}

	// Outside the window: no fetch.
	r2 := NewRunner(store, fetcher, &fakeNotifier{}, func() string { return "09:35" })
	r2.Run(time.Date(2026, 6, 16, 0, 2, 0, 0, time.UTC))
	if got := store.Current(); got.CommonName != "placeholder" {
		t.Error("minute 2 is outside the fetch window")
	}
}

func TestParseNotifyTime(t *testing.T) {
	tests := []struct {
		in       string
		wantH    int
		wantM    int
	}{
		{"09:35", 9, 35},
		{"0:00", 0, 0},
		{"23:59", 23, 59},
		{"24:00", 9, 35},
		{"garbage", 9, 35},
		{"", 9, 35},
	}
	for _, tc := range tests {
		h, m := parseNotifyTime(tc.in)
		if h != tc.wantH || m != tc.wantM {
			t.Errorf("parseNotifyTime(%q) = (%d, %d), want (%d, %d)", tc.in, h, m, tc.wantH, tc.wantM)
		}
	}
}

func TestWikipediaURL(t *testing.T) {
	tests := []struct {
		name  string
		plant Plant
		want  string
	}{
		{
			"genus and epithet",
			Plant{Genus: "Ocimum", SpeciesEpithet: "basilicum"},
			"https://en.wikipedia.org/wiki/Ocimum_basilicum",
		},
		{
			"scientific name fallback",
			Plant{ScientificName: []string{"Mentha spicata"}},
			"https://en.wikipedia.org/wiki/Mentha_spicata",
		},
		{
			"common name fallback",
			Plant{CommonName: "sweet basil"},
			"https://en.wikipedia.org/wiki/sweet_basil",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := wikipediaURL(&tc.plant); got != tc.want {
				t.Errorf("wikipediaURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatMessage(t *testing.T) {
	p := &Plant{
		CommonName:     "sweet basil",
		ScientificName: []string{"Ocimum basilicum"},
		Genus:          "Ocimum",
		SpeciesEpithet: "basilicum",
	}
	p.DefaultImage.RegularURL = "https://example.com/basil.jpg"

	msg := formatMessage(p)
	for _, want := range []string{
		"Plant of the Day: sweet basil",
		"_Ocimum basilicum_",
		"https://example.com/basil.jpg",
		"https://en.wikipedia.org/wiki/Ocimum_basilicum",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
