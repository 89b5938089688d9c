package alerts

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/garden-controller/internal/hardware"
	"github.com/sweeney/garden-controller/internal/settings"
)

// Notifier sends alert and recovery texts. Best-effort: failures are logged,
// never retried within a cycle.
type Notifier interface {
	Send(text string) error
}

// Engine runs the threshold checks. All dependencies are injected; Run never
// calls time.Now itself.
type Engine struct {
	states   *StateStore
	sensors  hardware.Sensors
	settings func() settings.Settings
	notifier Notifier
}

// NewEngine creates an alert engine. settingsFn is called once per cycle for
// a point-in-time snapshot.
func NewEngine(states *StateStore, sensors hardware.Sensors, settingsFn func() settings.Settings, notifier Notifier) *Engine {
	return &Engine{
		states:   states,
		sensors:  sensors,
		settings: settingsFn,
		notifier: notifier,
	}
}

// readings holds one cycle's sensor values. Nil means the read failed and
// that sensor is unknown this cycle.
type readings struct {
	waterCm  *float64
	airF     *float64
	humidity *float64
	boardF   *float64
}

// readSensors reads each sensor independently, tolerating individual
// failures. Temperatures are converted to Fahrenheit to match the
// thresholds.
func (e *Engine) readSensors() readings {
	var r readings
	if v, err := e.sensors.WaterDistanceCm(); err == nil {
		r.waterCm = &v
	} else {
		log.Printf("alerts: water distance read failed: %v", err)
	}
	if v, err := e.sensors.AirTemperatureC(); err == nil {
		f := cToF(v)
		r.airF = &f
	} else {
		log.Printf("alerts: air temperature read failed: %v", err)
	}
	if v, err := e.sensors.HumidityPct(); err == nil {
		r.humidity = &v
	} else {
		log.Printf("alerts: humidity read failed: %v", err)
	}
	if v, err := e.sensors.BoardTemperatureC(); err == nil {
		f := cToF(v)
		r.boardF = &f
	} else {
		log.Printf("alerts: board temperature read failed: %v", err)
	}
	return r
}

// Run executes one alert cycle: snapshot settings, read sensors, and walk
// the six keys through the transition logic.
func (e *Engine) Run(now time.Time) {
	cfg := e.settings()
	if !cfg.NotificationsEnabled {
		return
	}
	cooldown := time.Duration(settings.ClampCooldown(cfg.CooldownMinutes)) * time.Minute
	r := e.readSensors()

	// Water level: low means the ultrasonic distance reached the threshold.
	// A failed read leaves the key untouched this cycle (no data, no
	// transition); the same applies to every key below.
	waterLow := r.waterCm != nil && *r.waterCm >= cfg.WaterAlertThresholdCm
	e.check(now, cooldown, KeyWaterLow, waterLow, cfg.WaterAlertsEnabled && r.waterCm != nil,
		func() string {
			return fmt.Sprintf("💧 *Garden – Water level low*\nCurrent: %.1f cm (threshold: %g cm). Consider refilling.", *r.waterCm, cfg.WaterAlertThresholdCm)
		},
		func() string {
			return fmt.Sprintf("✅ *Garden – Water level OK*\nBack to normal (%.1f cm).", *r.waterCm)
		})

	airHigh := r.airF != nil && *r.airF > cfg.AirTempHighAlertF
	e.check(now, cooldown, KeyAirTempHigh, airHigh, cfg.AirTempAlertsEnabled && r.airF != nil,
		func() string {
			return fmt.Sprintf("🌡️ *Garden – Air temperature high*\nCurrent: %.1f°F (threshold: %g°F).", *r.airF, cfg.AirTempHighAlertF)
		},
		func() string {
			return fmt.Sprintf("✅ *Garden – Air temperature OK*\nBack to normal (%.1f°F).", *r.airF)
		})

	airLow := r.airF != nil && *r.airF < cfg.AirTempLowAlertF
	e.check(now, cooldown, KeyAirTempLow, airLow, cfg.AirTempAlertsEnabled && r.airF != nil,
		func() string {
			return fmt.Sprintf("🥶 *Garden – Air temperature low*\nCurrent: %.1f°F (threshold: %g°F).", *r.airF, cfg.AirTempLowAlertF)
		},
		func() string {
			return fmt.Sprintf("✅ *Garden – Air temperature OK*\nBack to normal (%.1f°F).", *r.airF)
		})

	humLow := r.humidity != nil && *r.humidity < cfg.HumidityLowAlertPct
	e.check(now, cooldown, KeyHumidityLow, humLow, cfg.HumidityAlertsEnabled && r.humidity != nil,
		func() string {
			return fmt.Sprintf("💨 *Garden – Humidity low*\nCurrent: %.1f%% (threshold: %g%%).", *r.humidity, cfg.HumidityLowAlertPct)
		},
		func() string {
			return fmt.Sprintf("✅ *Garden – Humidity OK*\nBack to normal (%.1f%%).", *r.humidity)
		})

	humHigh := r.humidity != nil && *r.humidity > cfg.HumidityHighAlertPct
	e.check(now, cooldown, KeyHumidityHigh, humHigh, cfg.HumidityAlertsEnabled && r.humidity != nil,
		func() string {
			return fmt.Sprintf("💦 *Garden – Humidity high*\nCurrent: %.1f%% (threshold: %g%%).", *r.humidity, cfg.HumidityHighAlertPct)
		},
		func() string {
			return fmt.Sprintf("✅ *Garden – Humidity OK*\nBack to normal (%.1f%%).", *r.humidity)
		})

	boardHigh := r.boardF != nil && *r.boardF > cfg.BoardTempAlertF
	e.check(now, cooldown, KeyBoardTempHigh, boardHigh, cfg.BoardTempAlertsEnabled && r.boardF != nil,
		func() string {
			return fmt.Sprintf("🔥 *Garden – PCB temperature high*\nCurrent: %.1f°F (threshold: %g°F). Check ventilation.", *r.boardF, cfg.BoardTempAlertF)
		},
		func() string {
			return fmt.Sprintf("✅ *Garden – PCB temperature OK*\nBack to normal (%.1f°F).", *r.boardF)
		})
}

// check applies the transition logic for one key.
//
// Entering alarm: send if the alert cooldown allows, stamping LastSentAt;
// otherwise flag InAlarm without stamping, so the next eligible cycle can
// still send. Recovering: only a sent recovery flips InAlarm back, so a
// suppressed recovery is retried next cycle until the cooldown passes.
func (e *Engine) check(now time.Time, cooldown time.Duration, key Key, breach, enabled bool, alertMsg, recoveryMsg func() string) {
	if !enabled {
		return
	}
	wasInAlarm := e.states.Get(key).InAlarm

	switch {
	case breach && !wasInAlarm:
		if e.states.CanSendAlert(key, cooldown, now) {
			e.send(alertMsg())
			if err := e.states.SetAlarmSent(key, now); err != nil {
				log.Printf("alerts: could not persist alarm state for %s: %v", key, err)
			}
		} else {
			if err := e.states.SetInAlarm(key, true); err != nil {
				log.Printf("alerts: could not persist alarm state for %s: %v", key, err)
			}
		}
	case !breach && wasInAlarm:
		if e.states.CanSendRecovery(key, cooldown, now) {
			e.send(recoveryMsg())
			if err := e.states.SetRecoverySent(key, now); err != nil {
				log.Printf("alerts: could not persist recovery state for %s: %v", key, err)
			}
		}
	}
}

func (e *Engine) send(text string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(text); err != nil {
		log.Printf("alerts: notification failed: %v", err)
	}
}

func cToF(c float64) float64 {
	return c*9/5 + 32
}
