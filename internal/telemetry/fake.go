package telemetry

import "time"

// PumpEventRecord is one recorded pump event.
type PumpEventRecord struct {
	Timestamp time.Time
	On        bool
	Trigger   string
	RuleID    string
}

// FakePublisher records published telemetry for test assertions.
type FakePublisher struct {
	// PumpEvents contains all pump events that were published.
	PumpEvents []PumpEventRecord

	// Snapshots contains all sensor snapshots that were published.
	Snapshots []Snapshot

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// Err, if set, is returned by every publish method.
	Err error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// LogPumpEvent records the pump event.
func (f *FakePublisher) LogPumpEvent(ts time.Time, on bool, trigger, ruleID string) error {
	if f.Err != nil {
		return f.Err
	}
	f.PumpEvents = append(f.PumpEvents, PumpEventRecord{
		Timestamp: ts,
		On:        on,
		Trigger:   trigger,
		RuleID:    ruleID,
	})
	return nil
}

// PublishSnapshot records the snapshot.
func (f *FakePublisher) PublishSnapshot(snap Snapshot) error {
	if f.Err != nil {
		return f.Err
	}
	f.Snapshots = append(f.Snapshots, snap)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.Err != nil {
		return f.Err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.PumpEvents = nil
	f.Snapshots = nil
	f.SystemEvents = nil
	f.Err = nil
	f.Closed = false
	f.Connected = false
}
