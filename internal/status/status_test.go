package status

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTrackerInitialSnapshot(t *testing.T) {
	start := time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{TickSeconds: 15, Broker: "tcp://broker:1883"})

	snap := tr.Snapshot()
	if snap.LightBrightness != -1 {
		t.Errorf("LightBrightness = %d, want -1 before first evaluation", snap.LightBrightness)
	}
	if snap.PumpOn || snap.PendingPumpOffs != 0 || snap.MQTTConnected {
		t.Errorf("unexpected initial state: %+v", snap)
	}
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TickSeconds != 15 {
		t.Errorf("Config.TickSeconds = %d", snap.Config.TickSeconds)
	}
}

func TestTrackerUpdates(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(80, true, 2)
	tr.SetInAlarm([]string{"water_low"})
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	if snap.LightBrightness != 80 || !snap.PumpOn || snap.PendingPumpOffs != 2 {
		t.Errorf("scheduler state not tracked: %+v", snap)
	}
	if len(snap.InAlarm) != 1 || snap.InAlarm[0] != "water_low" {
		t.Errorf("InAlarm = %v", snap.InAlarm)
	}
	if !snap.MQTTConnected {
		t.Error("MQTTConnected not tracked")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if got := snap.Uptime(); got != 90*time.Second {
		t.Errorf("Uptime = %v, want 90s", got)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{
		TickSeconds: 15,
		Broker:      "tcp://broker:1883",
		HTTPAddr:    ":8080",
		DataDir:     "/var/lib/garden",
		Device:      "garden",
	})
	tr.Update(40, true, 1)
	tr.SetInAlarm([]string{"pcb_temp_high"})
	tr.SetMQTTConnected(true)

	var got StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &got); err != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", err)
	}
	if got.Status.Light != "40%" {
		t.Errorf("light = %q, want 40%%", got.Status.Light)
	}
	if got.Status.Pump != "ON" {
		t.Errorf("pump = %q, want ON", got.Status.Pump)
	}
	if got.Status.PendingPumpOffs != 1 {
		t.Errorf("pending offs = %d", got.Status.PendingPumpOffs)
	}
	if len(got.Status.InAlarm) != 1 || got.Status.InAlarm[0] != "pcb_temp_high" {
		t.Errorf("in_alarm = %v", got.Status.InAlarm)
	}
	if !got.Status.MQTT.Connected || got.Status.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("mqtt = %+v", got.Status.MQTT)
	}
	if got.Status.Config.Device != "garden" || got.Status.Config.TickSeconds != 15 {
		t.Errorf("config = %+v", got.Status.Config)
	}
}

func TestFormatJSONLightLabels(t *testing.T) {
	tests := []struct {
		brightness int
		want       string
	}{
		{-1, "UNKNOWN"},
		{0, "OFF"},
		{100, "100%"},
	}
	for _, tc := range tests {
		tr := NewTracker(time.Now(), Config{})
		tr.Update(tc.brightness, false, 0)
		var got StatusJSON
		if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &got); err != nil {
			t.Fatal(err)
		}
		if got.Status.Light != tc.want {
			t.Errorf("brightness %d: light = %q, want %q", tc.brightness, got.Status.Light, tc.want)
		}
	}
}

func TestFormatJSONEmptyInAlarmIsArray(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["status"]["in_alarm"]) != "[]" {
		t.Errorf("in_alarm = %s, want []", raw["status"]["in_alarm"])
	}
}
