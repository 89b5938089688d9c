// Package telemetry publishes pump events and sensor snapshots to MQTT,
// with abstraction for testing.
package telemetry

import (
	"encoding/json"
	"time"
)

// Topic suffixes, appended to "garden/<device>".
const (
	TopicPumpEvents = "pump/events"
	TopicSnapshots  = "sensors/snapshot"
	TopicSystem     = "system"
)

// Publisher publishes telemetry to the broker.
type Publisher interface {
	// LogPumpEvent sends a pump on/off event. trigger is "rule" or
	// "manual"; ruleID is empty for manual events.
	LogPumpEvent(ts time.Time, on bool, trigger, ruleID string) error

	// PublishSnapshot sends a periodic sensor snapshot.
	PublishSnapshot(snap Snapshot) error

	// PublishSystem sends a system lifecycle event (startup, shutdown).
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Snapshot is one periodic sensor reading set. Nil fields are sensors that
// could not be read this cycle.
type Snapshot struct {
	Timestamp       time.Time
	WaterDistanceCm *float64
	AirTempC        *float64
	HumidityPct     *float64
	BoardTempC      *float64
	LightPct        *int
}

// SystemEvent represents a system lifecycle event.
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g. "STARTUP", "SHUTDOWN"
	Reason    string // e.g. "SIGTERM", "SIGINT" (shutdown only)
	Retained  bool
}

// pumpPayload is the JSON wire format for pump events.
type pumpPayload struct {
	Pump pumpPayloadInner `json:"pump"`
}

type pumpPayloadInner struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"` // "ON" or "OFF"
	Trigger   string `json:"trigger"`
	RuleID    string `json:"rule_id,omitempty"`
}

// FormatPumpPayload creates the JSON payload for a pump event.
func FormatPumpPayload(ts time.Time, on bool, trigger, ruleID string) ([]byte, error) {
	state := "OFF"
	if on {
		state = "ON"
	}
	return json.Marshal(pumpPayload{
		Pump: pumpPayloadInner{
			Timestamp: ts.UTC().Format(time.RFC3339),
			State:     state,
			Trigger:   trigger,
			RuleID:    ruleID,
		},
	})
}

// snapshotPayload is the JSON wire format for sensor snapshots.
type snapshotPayload struct {
	Sensors snapshotPayloadInner `json:"sensors"`
}

type snapshotPayloadInner struct {
	Timestamp       string   `json:"timestamp"`
	WaterDistanceCm *float64 `json:"water_distance_cm,omitempty"`
	AirTempC        *float64 `json:"air_temp_c,omitempty"`
	HumidityPct     *float64 `json:"humidity_pct,omitempty"`
	BoardTempC      *float64 `json:"board_temp_c,omitempty"`
	LightPct        *int     `json:"light_pct,omitempty"`
}

// FormatSnapshotPayload creates the JSON payload for a sensor snapshot.
func FormatSnapshotPayload(snap Snapshot) ([]byte, error) {
	return json.Marshal(snapshotPayload{
		Sensors: snapshotPayloadInner{
			Timestamp:       snap.Timestamp.UTC().Format(time.RFC3339),
			WaterDistanceCm: snap.WaterDistanceCm,
			AirTempC:        snap.AirTempC,
			HumidityPct:     snap.HumidityPct,
			BoardTempC:      snap.BoardTempC,
			LightPct:        snap.LightPct,
		},
	})
}

// systemPayload is the JSON wire format for system events.
type systemPayload struct {
	System systemPayloadInner `json:"system"`
}

type systemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	return json.Marshal(systemPayload{
		System: systemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) LogPumpEvent(time.Time, bool, string, string) error { return nil }
func (NopPublisher) PublishSnapshot(Snapshot) error                     { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error                    { return nil }
func (NopPublisher) Close() error                                       { return nil }
