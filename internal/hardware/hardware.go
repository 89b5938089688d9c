// Package hardware defines the actuator and sensor ports for the garden
// controller. The real implementations drive GPIO relay lines and sysfs PWM
// on Linux; the fake implementations allow testing without hardware.
package hardware

// Light drives the grow light.
type Light interface {
	On() error
	Off() error

	// SetBrightness sets the light output, 0-100 percent.
	SetBrightness(pct int) error

	// Brightness returns the last applied brightness percent.
	Brightness() (int, error)

	// Close releases hardware resources.
	Close() error
}

// Pump drives the water pump.
type Pump interface {
	On() error
	Off() error

	// SetSpeed sets the pump speed, 0-100 percent.
	SetSpeed(pct int) error

	// Close releases hardware resources.
	Close() error
}

// Sensors reads the environmental sensors. Each read is independent and may
// fail on its own; callers treat a failed read as "no data" for that cycle.
type Sensors interface {
	// WaterDistanceCm returns the ultrasonic distance from the sensor to the
	// water surface. A larger distance means less water in the tank.
	WaterDistanceCm() (float64, error)

	// AirTemperatureC returns the air temperature in Celsius.
	AirTemperatureC() (float64, error)

	// HumidityPct returns the relative humidity, 0-100 percent.
	HumidityPct() (float64, error)

	// BoardTemperatureC returns the controller board temperature in Celsius.
	BoardTemperatureC() (float64, error)

	// Close releases hardware resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinLight   = 18 // light relay
	DefaultPinPump    = 13 // pump relay
	DefaultPinTrigger = 23 // ultrasonic trigger
	DefaultPinEcho    = 24 // ultrasonic echo
)
