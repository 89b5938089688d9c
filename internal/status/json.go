package status

import (
	"encoding/json"
	"strconv"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Light           string     `json:"light"` // "OFF", "NN%", or "UNKNOWN"
	LightBrightness int        `json:"light_brightness"`
	Pump            string     `json:"pump"` // "ON" or "OFF"
	PendingPumpOffs int        `json:"pending_pump_offs"`
	InAlarm         []string   `json:"in_alarm"`
	UptimeSeconds   int64      `json:"uptime_seconds"`
	StartTime       string     `json:"start_time"`
	Timestamp       string     `json:"timestamp"`
	MQTT            MQTTStatus `json:"mqtt"`
	Config          ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickSeconds int64  `json:"tick_seconds"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	DataDir     string `json:"data_dir"`
	Device      string `json:"device"`
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	inner := StatusInner{
		Light:           lightLabel(snap.LightBrightness),
		LightBrightness: snap.LightBrightness,
		Pump:            pumpLabel(snap.PumpOn),
		PendingPumpOffs: snap.PendingPumpOffs,
		InAlarm:         snap.InAlarm,
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		MQTT:            MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			TickSeconds: snap.Config.TickSeconds,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			DataDir:     snap.Config.DataDir,
			Device:      snap.Config.Device,
		},
	}
	if inner.InAlarm == nil {
		inner.InAlarm = []string{}
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

func lightLabel(brightness int) string {
	switch {
	case brightness < 0:
		return "UNKNOWN"
	case brightness == 0:
		return "OFF"
	default:
		return strconv.Itoa(brightness) + "%"
	}
}

func pumpLabel(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
