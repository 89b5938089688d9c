// Package schedule applies schedule rules to the light and pump on every
// tick of the driver loop.
//
// Light: desired brightness is computed from all enabled light rules; the
// matching rule with the latest start time wins. Pump: at trigger time the
// pump turns on for the rule's duration; pending off times are tracked in
// memory and applied when due.
//
// Time is always injectable via time.Time parameters; the engine never calls
// time.Now itself.
package schedule

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sweeney/garden-controller/internal/hardware"
	"github.com/sweeney/garden-controller/internal/rules"
)

// Pump event triggers, recorded with each on/off event.
const (
	TriggerRule   = "rule"
	TriggerManual = "manual"
)

// EventSink receives pump on/off events for the history stream. Failures are
// the sink's problem; the engine logs and moves on.
type EventSink interface {
	LogPumpEvent(ts time.Time, on bool, trigger, ruleID string) error
}

// defaultPumpMinutes is used when a pump rule has no usable duration.
const defaultPumpMinutes = 5

// pumpOff is one pending shutoff for a fired pump rule.
type pumpOff struct {
	at     time.Time
	ruleID string
}

// Engine evaluates schedule rules once per tick and drives the actuators.
type Engine struct {
	store  *rules.Store
	light  hardware.Light
	pump   hardware.Pump
	events EventSink

	// offMu guards pumpOffs only; it is never held across actuator calls.
	offMu    sync.Mutex
	pumpOffs []pumpOff

	// lastBrightness is the most recently applied desired brightness, for
	// the status page. -1 until the first light evaluation.
	stateMu        sync.Mutex
	lastBrightness int
	pumpOn         bool
}

// New creates an engine with injected store, actuators, and event sink.
func New(store *rules.Store, light hardware.Light, pump hardware.Pump, events EventSink) *Engine {
	return &Engine{
		store:          store,
		light:          light,
		pump:           pump,
		events:         events,
		lastBrightness: -1,
	}
}

// Tick runs one full evaluation: light rules, then pump rules. Failures in
// either path are logged and isolated; Tick never panics on actuator errors.
func (e *Engine) Tick(now time.Time) {
	doc := e.store.Load()
	e.applyLightRules(doc, now)
	e.applyPumpRules(doc, now)
}

// applyLightRules computes the desired brightness from all enabled light
// rules and applies it. The matching rule with the latest start time wins;
// no matching rule means brightness 0.
func (e *Engine) applyLightRules(doc rules.Document, now time.Time) {
	if doc.LightPausedUntil != nil && now.Before(*doc.LightPausedUntil) {
		return
	}

	var lightRules []rules.Rule
	for _, r := range doc.Rules {
		if r.Type == rules.TypeLight && r.Enabled && !r.Paused {
			lightRules = append(lightRules, r)
		}
	}
	if len(lightRules) == 0 {
		return
	}

	// Sort by start time so "last matching wins" is deterministic.
	sort.SliceStable(lightRules, func(i, j int) bool {
		return lightRules[i].StartTime < lightRules[j].StartTime
	})

	nowM := now.Hour()*60 + now.Minute()
	desired := 0
	for _, r := range lightRules {
		startM, ok := parseClock(r.StartTime)
		if !ok {
			continue
		}
		if r.EndTime != "" {
			endM, ok := parseClock(r.EndTime)
			if !ok {
				continue
			}
			if startM <= nowM && nowM < endM {
				desired = r.BrightnessPct
			}
		} else if nowM >= startM {
			// Set and hold from start time onward.
			desired = r.BrightnessPct
		}
	}

	if err := e.applyLight(desired); err != nil {
		log.Printf("schedule: could not set light: %v", err)
		return
	}
	e.stateMu.Lock()
	e.lastBrightness = desired
	e.stateMu.Unlock()
}

func (e *Engine) applyLight(desired int) error {
	if desired == 0 {
		return e.light.Off()
	}
	if err := e.light.On(); err != nil {
		return err
	}
	return e.light.SetBrightness(desired)
}

// applyPumpRules handles, in order: pending shutoffs that are due, the manual
// one-shot off, the pause override, and finally rule firing at the current
// minute.
func (e *Engine) applyPumpRules(doc rules.Document, now time.Time) {
	// 1) Turn off any pumps that are due. The queue mutation happens under
	// the lock; the actuator calls happen after it is released.
	e.offMu.Lock()
	var due, pending []pumpOff
	for _, off := range e.pumpOffs {
		if !now.Before(off.at) {
			due = append(due, off)
		} else {
			pending = append(pending, off)
		}
	}
	e.pumpOffs = pending
	e.offMu.Unlock()

	for _, off := range due {
		if err := e.pump.Off(); err != nil {
			log.Printf("schedule: could not turn pump off: %v", err)
			continue
		}
		e.setPumpOn(false)
		e.logPumpEvent(now, false, TriggerRule, off.ruleID)
		log.Printf("schedule: pump off (rule %s)", off.ruleID)
	}

	// 2) If the manual pump off time is reached, turn the pump off and clear
	// the override (one-shot).
	if doc.ManualPumpOffAt != nil && !now.Before(*doc.ManualPumpOffAt) {
		if err := e.pump.Off(); err != nil {
			log.Printf("schedule: could not turn pump off: %v", err)
		} else {
			e.setPumpOn(false)
			e.logPumpEvent(now, false, TriggerManual, "")
			log.Printf("schedule: pump off (manual watering ended)")
		}
		if err := e.store.SetManualPumpOffAt(nil); err != nil {
			log.Printf("schedule: could not clear manual pump off: %v", err)
		}
	}

	// 3) No new activations while pump rules are paused. Pending offs above
	// are unaffected.
	if doc.PumpPausedUntil != nil && now.Before(*doc.PumpPausedUntil) {
		return
	}

	// 4) Fire pump rules matching the current minute.
	nowStr := fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute())
	var fired []pumpOff
	for _, r := range doc.Rules {
		if r.Type != rules.TypePump || !r.Enabled || r.Paused {
			continue
		}
		if r.Time != nowStr {
			continue
		}
		duration := r.DurationMinutes
		if duration <= 0 {
			duration = defaultPumpMinutes
		}
		if err := e.pump.On(); err != nil {
			log.Printf("schedule: could not turn pump on: %v", err)
			continue
		}
		if err := e.pump.SetSpeed(100); err != nil {
			log.Printf("schedule: could not set pump speed: %v", err)
			continue
		}
		e.setPumpOn(true)
		e.logPumpEvent(now, true, TriggerRule, r.ID)
		fired = append(fired, pumpOff{
			at:     now.Add(time.Duration(duration) * time.Minute),
			ruleID: r.ID,
		})
		log.Printf("schedule: pump on for %d min (rule %s)", duration, r.ID)
	}
	if len(fired) > 0 {
		e.offMu.Lock()
		e.pumpOffs = append(e.pumpOffs, fired...)
		e.offMu.Unlock()
	}
}

func (e *Engine) logPumpEvent(ts time.Time, on bool, trigger, ruleID string) {
	if e.events == nil {
		return
	}
	if err := e.events.LogPumpEvent(ts, on, trigger, ruleID); err != nil {
		log.Printf("schedule: could not log pump event: %v", err)
	}
}

func (e *Engine) setPumpOn(on bool) {
	e.stateMu.Lock()
	e.pumpOn = on
	e.stateMu.Unlock()
}

// PendingOffs returns the number of queued pump shutoffs.
func (e *Engine) PendingOffs() int {
	e.offMu.Lock()
	defer e.offMu.Unlock()
	return len(e.pumpOffs)
}

// LightBrightness returns the last applied desired brightness, or -1 if the
// light has not been evaluated yet.
func (e *Engine) LightBrightness() int {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.lastBrightness
}

// PumpOn reports whether the engine last commanded the pump on.
func (e *Engine) PumpOn() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.pumpOn
}

// parseClock parses "HH:MM" or "H:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
