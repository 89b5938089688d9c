package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "rules.json"))
}

func TestLoadMissingFileReturnsEmptyDocument(t *testing.T) {
	s := newTestStore(t)
	doc := s.Load()
	if len(doc.Rules) != 0 {
		t.Errorf("expected no rules, got %d", len(doc.Rules))
	}
	if doc.LightPausedUntil != nil || doc.PumpPausedUntil != nil || doc.ManualPumpOffAt != nil {
		t.Error("expected no overrides in empty document")
	}
}

func TestLoadCorruptFileReturnsEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte("{{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)
	if got := len(s.Load().Rules); got != 0 {
		t.Errorf("corrupt file should load as empty, got %d rules", got)
	}

	// The store recovers on the next write.
	if _, err := s.AddRule(Rule{Type: TypeLight, StartTime: "09:00", Enabled: true}); err != nil {
		t.Fatalf("AddRule after corrupt file: %v", err)
	}
	if got := len(s.Load().Rules); got != 1 {
		t.Errorf("expected 1 rule after recovery, got %d", got)
	}
}

func TestAddRuleAssignsID(t *testing.T) {
	s := newTestStore(t)
	r, err := s.AddRule(Rule{Type: TypePump, Time: "06:00", DurationMinutes: 10, Enabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if r.ID == "" {
		t.Error("AddRule should assign an id")
	}

	r2, err := s.AddRule(Rule{ID: "fixed-id", Type: TypeLight, StartTime: "09:00", Enabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if r2.ID != "fixed-id" {
		t.Errorf("explicit id overwritten: %q", r2.ID)
	}

	doc := s.Load()
	if len(doc.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(doc.Rules))
	}
	if doc.Rules[0].ID == doc.Rules[1].ID {
		t.Error("rule ids must be unique")
	}
}

func TestUpdateRule(t *testing.T) {
	s := newTestStore(t)
	r, err := s.AddRule(Rule{Type: TypeLight, StartTime: "09:00", EndTime: "17:00", BrightnessPct: 80, Enabled: true})
	if err != nil {
		t.Fatal(err)
	}

	pct := 40
	paused := true
	updated, err := s.UpdateRule(r.ID, Patch{BrightnessPct: &pct, Paused: &paused})
	if err != nil {
		t.Fatal(err)
	}
	if updated.BrightnessPct != 40 || !updated.Paused {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.StartTime != "09:00" || updated.EndTime != "17:00" || !updated.Enabled {
		t.Errorf("unpatched fields changed: %+v", updated)
	}

	if _, err := s.UpdateRule("no-such-id", Patch{BrightnessPct: &pct}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRule(t *testing.T) {
	s := newTestStore(t)
	r, err := s.AddRule(Rule{Type: TypePump, Time: "06:00", Enabled: true})
	if err != nil {
		t.Fatal(err)
	}

	removed, err := s.DeleteRule(r.ID)
	if err != nil || !removed {
		t.Fatalf("DeleteRule = (%v, %v), want (true, nil)", removed, err)
	}
	if got := len(s.Load().Rules); got != 0 {
		t.Errorf("expected 0 rules after delete, got %d", got)
	}

	removed, err = s.DeleteRule(r.ID)
	if err != nil || removed {
		t.Errorf("second delete = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestOverridesSetAndClear(t *testing.T) {
	s := newTestStore(t)
	until := time.Date(2026, 6, 15, 13, 0, 0, 0, time.UTC)

	if err := s.SetLightPausedUntil(&until); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPumpPausedUntil(&until); err != nil {
		t.Fatal(err)
	}
	if err := s.SetManualPumpOffAt(&until); err != nil {
		t.Fatal(err)
	}

	doc := s.Load()
	if doc.LightPausedUntil == nil || !doc.LightPausedUntil.Equal(until) {
		t.Errorf("LightPausedUntil = %v, want %v", doc.LightPausedUntil, until)
	}
	if doc.PumpPausedUntil == nil || doc.ManualPumpOffAt == nil {
		t.Error("pump overrides not set")
	}

	if err := s.SetManualPumpOffAt(nil); err != nil {
		t.Fatal(err)
	}
	doc = s.Load()
	if doc.ManualPumpOffAt != nil {
		t.Error("manual pump off not cleared")
	}
	if doc.LightPausedUntil == nil {
		t.Error("clearing one override must not touch the others")
	}
}

func TestDocumentPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	r, err := NewStore(path).AddRule(Rule{Type: TypeLight, StartTime: "09:00", BrightnessPct: 50, Enabled: true})
	if err != nil {
		t.Fatal(err)
	}

	doc := NewStore(path).Load()
	if len(doc.Rules) != 1 || doc.Rules[0].ID != r.ID {
		t.Errorf("document lost across instances: %+v", doc)
	}
}

func TestConcurrentAdds(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddRule(Rule{
				Type:      TypeLight,
				StartTime: fmt.Sprintf("%02d:00", i%24),
				Enabled:   true,
			})
			if err != nil {
				t.Errorf("AddRule: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.Load().Rules); got != 20 {
		t.Errorf("expected 20 rules, got %d", got)
	}
}
