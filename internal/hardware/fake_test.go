package hardware

import (
	"errors"
	"testing"
)

func TestFakeLightRecordsCalls(t *testing.T) {
	f := &FakeLight{}
	if err := f.On(); err != nil {
		t.Fatal(err)
	}
	if err := f.SetBrightness(75); err != nil {
		t.Fatal(err)
	}
	if err := f.Off(); err != nil {
		t.Fatal(err)
	}

	want := []string{"on", "brightness=75", "off"}
	if len(f.Calls) != len(want) {
		t.Fatalf("calls = %v, want %v", f.Calls, want)
	}
	for i := range want {
		if f.Calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, f.Calls[i], want[i])
		}
	}
	if f.IsOn {
		t.Error("light should be off after Off")
	}
	if lvl, err := f.Brightness(); err != nil || lvl != 75 {
		t.Errorf("Brightness = (%d, %v)", lvl, err)
	}
}

func TestFakeErrInjection(t *testing.T) {
	fault := errors.New("gpio fault")
	l := &FakeLight{Err: fault}
	if err := l.On(); !errors.Is(err, fault) {
		t.Errorf("On error = %v", err)
	}
	if len(l.Calls) != 0 {
		t.Error("failed calls must not be recorded")
	}

	p := &FakePump{Err: fault}
	if err := p.SetSpeed(100); !errors.Is(err, fault) {
		t.Errorf("SetSpeed error = %v", err)
	}
}

func TestFakeSensorsNilMeansFailure(t *testing.T) {
	s := &FakeSensors{Water: Float(7.5)}

	if v, err := s.WaterDistanceCm(); err != nil || v != 7.5 {
		t.Errorf("WaterDistanceCm = (%g, %v)", v, err)
	}
	if _, err := s.AirTemperatureC(); err == nil {
		t.Error("nil reading should fail")
	}
	if _, err := s.HumidityPct(); err == nil {
		t.Error("nil reading should fail")
	}
}
