package hardware

import (
	"errors"
	"strconv"
)

// FakeLight is a test double that records actuator calls.
type FakeLight struct {
	// Calls records every call in order: "on", "off", "brightness=N".
	Calls []string

	// IsOn and Level track the resulting state.
	IsOn  bool
	Level int

	// Err, if set, is returned by every method.
	Err error
}

// On records the call.
func (f *FakeLight) On() error {
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, "on")
	f.IsOn = true
	return nil
}

// Off records the call.
func (f *FakeLight) Off() error {
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, "off")
	f.IsOn = false
	return nil
}

// SetBrightness records the call.
func (f *FakeLight) SetBrightness(pct int) error {
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, "brightness="+strconv.Itoa(pct))
	f.Level = pct
	return nil
}

// Brightness returns the last set level.
func (f *FakeLight) Brightness() (int, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Level, nil
}

// Close is a no-op.
func (f *FakeLight) Close() error { return nil }

// Reset clears recorded calls and state.
func (f *FakeLight) Reset() {
	f.Calls = nil
	f.IsOn = false
	f.Level = 0
	f.Err = nil
}

// FakePump is a test double that records actuator calls.
type FakePump struct {
	// Calls records every call in order: "on", "off", "speed=N".
	Calls []string

	// IsOn tracks the resulting state.
	IsOn bool

	// Err, if set, is returned by every method.
	Err error
}

// On records the call.
func (f *FakePump) On() error {
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, "on")
	f.IsOn = true
	return nil
}

// Off records the call.
func (f *FakePump) Off() error {
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, "off")
	f.IsOn = false
	return nil
}

// SetSpeed records the call.
func (f *FakePump) SetSpeed(pct int) error {
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, "speed="+strconv.Itoa(pct))
	return nil
}

// Close is a no-op.
func (f *FakePump) Close() error { return nil }

// Reset clears recorded calls and state.
func (f *FakePump) Reset() {
	f.Calls = nil
	f.IsOn = false
	f.Err = nil
}

// FakeSensors returns scripted readings. A nil value means that sensor
// read fails.
type FakeSensors struct {
	Water *float64 // cm
	AirC  *float64 // Celsius
	Hum   *float64 // percent
	PCBC  *float64 // Celsius
}

var errNoReading = errors.New("no reading")

// Float is a convenience for building scripted readings.
func Float(v float64) *float64 { return &v }

func (f *FakeSensors) WaterDistanceCm() (float64, error)   { return deref(f.Water) }
func (f *FakeSensors) AirTemperatureC() (float64, error)   { return deref(f.AirC) }
func (f *FakeSensors) HumidityPct() (float64, error)       { return deref(f.Hum) }
func (f *FakeSensors) BoardTemperatureC() (float64, error) { return deref(f.PCBC) }

// Close is a no-op.
func (f *FakeSensors) Close() error { return nil }

func deref(v *float64) (float64, error) {
	if v == nil {
		return 0, errNoReading
	}
	return *v, nil
}
