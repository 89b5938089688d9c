// Package status provides a thread-safe status tracker for the
// garden-controller daemon. It is read by the HTTP handlers.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	TickSeconds int64
	Broker      string
	HTTPAddr    string
	DataDir     string
	Device      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	LightBrightness int // -1 until the first evaluation
	PumpOn          bool
	PendingPumpOffs int
	InAlarm         []string
	MQTTConnected   bool
	StartTime       time.Time
	Now             time.Time
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			LightBrightness: -1,
			StartTime:       startTime,
			Config:          cfg,
		},
	}
}

// Update sets the scheduler-derived state. Called from the driver loop on
// every tick.
func (t *Tracker) Update(lightBrightness int, pumpOn bool, pendingOffs int) {
	t.mu.Lock()
	t.snap.LightBrightness = lightBrightness
	t.snap.PumpOn = pumpOn
	t.snap.PendingPumpOffs = pendingOffs
	t.mu.Unlock()
}

// SetInAlarm sets the list of alert keys currently in alarm.
func (t *Tracker) SetInAlarm(keys []string) {
	t.mu.Lock()
	t.snap.InAlarm = keys
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
