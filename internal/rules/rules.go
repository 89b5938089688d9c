// Package rules provides the persisted schedule rule document: the rule list
// plus the server-side overrides (pause-until times and the one-shot manual
// pump off). Rule times are HH:MM strings in device local time.
package rules

import "time"

// Type discriminates the rule union.
type Type string

const (
	TypeLight Type = "light"
	TypePump  Type = "pump"
)

// Rule is one schedule rule. Light rules use StartTime/EndTime/BrightnessPct;
// pump rules use Time/DurationMinutes. An empty EndTime on a light rule means
// "set and hold from StartTime onward until superseded".
type Rule struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`

	// Light rule fields
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	BrightnessPct int    `json:"brightness_pct,omitempty"`

	// Pump rule fields
	Time            string `json:"time,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`

	Enabled bool `json:"enabled"`
	Paused  bool `json:"paused"`
}

// Document is the whole persisted state: rules plus overrides. It is always
// loaded and saved as one unit.
type Document struct {
	Rules []Rule `json:"rules"`

	// While now is before these times the scheduler skips that rule type.
	LightPausedUntil *time.Time `json:"light_rules_paused_until"`
	PumpPausedUntil  *time.Time `json:"pump_rules_paused_until"`

	// One-shot: when reached, the scheduler forces the pump off and clears it.
	ManualPumpOffAt *time.Time `json:"manual_pump_off_at"`
}

// Patch holds partial rule updates; nil fields are left unchanged.
type Patch struct {
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	BrightnessPct   *int    `json:"brightness_pct"`
	Time            *string `json:"time"`
	DurationMinutes *int    `json:"duration_minutes"`
	Enabled         *bool   `json:"enabled"`
	Paused          *bool   `json:"paused"`
}

func (r Rule) applied(p Patch) Rule {
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = *p.EndTime
	}
	if p.BrightnessPct != nil {
		r.BrightnessPct = *p.BrightnessPct
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.DurationMinutes != nil {
		r.DurationMinutes = *p.DurationMinutes
	}
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	if p.Paused != nil {
		r.Paused = *p.Paused
	}
	return r
}
