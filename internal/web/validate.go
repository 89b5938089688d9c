package web

import (
	"errors"
	"fmt"

	"github.com/sweeney/garden-controller/internal/rules"
)

func validClock(s string) bool {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return false
	}
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}

func validateRule(r rules.Rule) error {
	switch r.Type {
	case rules.TypeLight:
		if !validClock(r.StartTime) {
			return errors.New("start_time must be HH:MM")
		}
		if r.EndTime != "" && !validClock(r.EndTime) {
			return errors.New("end_time must be HH:MM or empty")
		}
		if r.BrightnessPct < 0 || r.BrightnessPct > 100 {
			return errors.New("brightness_pct must be between 0 and 100")
		}
	case rules.TypePump:
		if !validClock(r.Time) {
			return errors.New("time must be HH:MM")
		}
		if r.DurationMinutes < 0 {
			return errors.New("duration_minutes must not be negative")
		}
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}

func validatePatch(p rules.Patch) error {
	if p.StartTime != nil && !validClock(*p.StartTime) {
		return errors.New("start_time must be HH:MM")
	}
	if p.EndTime != nil && *p.EndTime != "" && !validClock(*p.EndTime) {
		return errors.New("end_time must be HH:MM or empty")
	}
	if p.BrightnessPct != nil && (*p.BrightnessPct < 0 || *p.BrightnessPct > 100) {
		return errors.New("brightness_pct must be between 0 and 100")
	}
	if p.Time != nil && !validClock(*p.Time) {
		return errors.New("time must be HH:MM")
	}
	if p.DurationMinutes != nil && *p.DurationMinutes < 0 {
		return errors.New("duration_minutes must not be negative")
	}
	return nil
}
