//go:build !linux

package hardware

import "errors"

var errNotSupported = errors.New("hardware: not supported on this platform (requires Linux)")

// RealLight is not available on non-Linux platforms.
type RealLight struct{}

// NewRealLight returns an error on non-Linux platforms.
func NewRealLight(chip string, pin int, pwmDir string) (*RealLight, error) {
	return nil, errNotSupported
}

func (l *RealLight) On() error                   { return errNotSupported }
func (l *RealLight) Off() error                  { return errNotSupported }
func (l *RealLight) SetBrightness(pct int) error { return errNotSupported }
func (l *RealLight) Brightness() (int, error)    { return 0, errNotSupported }
func (l *RealLight) Close() error                { return nil }

// RealPump is not available on non-Linux platforms.
type RealPump struct{}

// NewRealPump returns an error on non-Linux platforms.
func NewRealPump(chip string, pin int, pwmDir string) (*RealPump, error) {
	return nil, errNotSupported
}

func (p *RealPump) On() error              { return errNotSupported }
func (p *RealPump) Off() error             { return errNotSupported }
func (p *RealPump) SetSpeed(pct int) error { return errNotSupported }
func (p *RealPump) Close() error           { return nil }

// SensorPaths configures the sysfs files RealSensors reads from.
type SensorPaths struct {
	AirTemp  string
	Humidity string
	Thermal  string
}

// DefaultSensorPaths returns zero paths on non-Linux platforms.
func DefaultSensorPaths() SensorPaths { return SensorPaths{} }

// RealSensors is not available on non-Linux platforms.
type RealSensors struct{}

// NewRealSensors returns an error on non-Linux platforms.
func NewRealSensors(chip string, pinTrigger, pinEcho int, paths SensorPaths) (*RealSensors, error) {
	return nil, errNotSupported
}

func (s *RealSensors) WaterDistanceCm() (float64, error)   { return 0, errNotSupported }
func (s *RealSensors) AirTemperatureC() (float64, error)   { return 0, errNotSupported }
func (s *RealSensors) HumidityPct() (float64, error)       { return 0, errNotSupported }
func (s *RealSensors) BoardTemperatureC() (float64, error) { return 0, errNotSupported }
func (s *RealSensors) Close() error                        { return nil }
