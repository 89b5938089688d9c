//go:build linux

package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// pwmPeriodNs is the PWM period written once at init (1 kHz).
const pwmPeriodNs = 1000000

// sysfsPWM drives one channel of a sysfs PWM chip (e.g. /sys/class/pwm/pwmchip0/pwm0).
type sysfsPWM struct {
	dir string
}

func newSysfsPWM(dir string) (*sysfsPWM, error) {
	p := &sysfsPWM{dir: dir}
	if err := p.write("period", pwmPeriodNs); err != nil {
		return nil, fmt.Errorf("set pwm period: %w", err)
	}
	if err := p.write("enable", 1); err != nil {
		return nil, fmt.Errorf("enable pwm: %w", err)
	}
	return p, nil
}

func (p *sysfsPWM) write(file string, v int) error {
	return os.WriteFile(filepath.Join(p.dir, file), []byte(strconv.Itoa(v)), 0o644)
}

// setDuty sets the duty cycle as a 0-100 percentage of the period.
func (p *sysfsPWM) setDuty(pct int) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return p.write("duty_cycle", pwmPeriodNs/100*pct)
}

func (p *sysfsPWM) close() error {
	return p.write("enable", 0)
}

// RealLight drives the grow light: a relay line for power and a PWM channel
// for dimming.
type RealLight struct {
	line *gpiocdev.Line
	pwm  *sysfsPWM

	mu         sync.Mutex
	brightness int
}

// NewRealLight requests the relay line as output and sets up the PWM channel.
// pwmDir may be empty if the light has no dimmer; SetBrightness then only
// records the value.
func NewRealLight(chip string, pin int, pwmDir string) (*RealLight, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request light pin %d: %w", pin, err)
	}

	var pwm *sysfsPWM
	if pwmDir != "" {
		pwm, err = newSysfsPWM(pwmDir)
		if err != nil {
			line.Close()
			return nil, fmt.Errorf("light pwm: %w", err)
		}
	}

	return &RealLight{line: line, pwm: pwm}, nil
}

// On energizes the light relay.
func (l *RealLight) On() error {
	if err := l.line.SetValue(1); err != nil {
		return fmt.Errorf("light on: %w", err)
	}
	return nil
}

// Off de-energizes the light relay.
func (l *RealLight) Off() error {
	if err := l.line.SetValue(0); err != nil {
		return fmt.Errorf("light off: %w", err)
	}
	return nil
}

// SetBrightness sets the PWM duty cycle.
func (l *RealLight) SetBrightness(pct int) error {
	if l.pwm != nil {
		if err := l.pwm.setDuty(pct); err != nil {
			return fmt.Errorf("light brightness: %w", err)
		}
	}
	l.mu.Lock()
	l.brightness = pct
	l.mu.Unlock()
	return nil
}

// Brightness returns the last applied brightness.
func (l *RealLight) Brightness() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.brightness, nil
}

// Close turns the light off and releases the line.
func (l *RealLight) Close() error {
	var errs []error
	if l.pwm != nil {
		if err := l.pwm.close(); err != nil {
			errs = append(errs, err)
		}
	}
	// Leave the relay de-energized so the light is off after shutdown.
	if err := l.line.SetValue(0); err != nil {
		errs = append(errs, err)
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close light: %v", errs)
	}
	return nil
}

// RealPump drives the water pump relay and PWM speed channel.
type RealPump struct {
	line *gpiocdev.Line
	pwm  *sysfsPWM
}

// NewRealPump requests the relay line as output and sets up the PWM channel.
func NewRealPump(chip string, pin int, pwmDir string) (*RealPump, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request pump pin %d: %w", pin, err)
	}

	var pwm *sysfsPWM
	if pwmDir != "" {
		pwm, err = newSysfsPWM(pwmDir)
		if err != nil {
			line.Close()
			return nil, fmt.Errorf("pump pwm: %w", err)
		}
	}

	return &RealPump{line: line, pwm: pwm}, nil
}

// On energizes the pump relay.
func (p *RealPump) On() error {
	if err := p.line.SetValue(1); err != nil {
		return fmt.Errorf("pump on: %w", err)
	}
	return nil
}

// Off de-energizes the pump relay.
func (p *RealPump) Off() error {
	if err := p.line.SetValue(0); err != nil {
		return fmt.Errorf("pump off: %w", err)
	}
	return nil
}

// SetSpeed sets the PWM duty cycle.
func (p *RealPump) SetSpeed(pct int) error {
	if p.pwm == nil {
		return nil
	}
	if err := p.pwm.setDuty(pct); err != nil {
		return fmt.Errorf("pump speed: %w", err)
	}
	return nil
}

// Close turns the pump off and releases the line. The pump must never stay
// energized past process shutdown.
func (p *RealPump) Close() error {
	var errs []error
	if p.pwm != nil {
		if err := p.pwm.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.line.SetValue(0); err != nil {
		errs = append(errs, err)
	}
	if err := p.line.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close pump: %v", errs)
	}
	return nil
}

// RealSensors reads the hardware sensors: an HC-SR04 ultrasonic rangefinder
// on two GPIO lines for water distance, an IIO temperature/humidity device
// for air readings, and the SoC thermal zone for board temperature.
type RealSensors struct {
	trigger *gpiocdev.Line
	echo    *gpiocdev.Line

	airTempPath  string
	humidityPath string
	thermalPath  string
}

// SensorPaths configures the sysfs files RealSensors reads from.
type SensorPaths struct {
	AirTemp  string // IIO in_temp_input, millidegrees C
	Humidity string // IIO in_humidityrelative_input, millipercent
	Thermal  string // thermal zone temp, millidegrees C
}

// DefaultSensorPaths returns the paths for a stock Raspberry Pi OS install
// with an HTS221 on I2C.
func DefaultSensorPaths() SensorPaths {
	return SensorPaths{
		AirTemp:  "/sys/bus/iio/devices/iio:device0/in_temp_input",
		Humidity: "/sys/bus/iio/devices/iio:device0/in_humidityrelative_input",
		Thermal:  "/sys/class/thermal/thermal_zone0/temp",
	}
}

// NewRealSensors requests the ultrasonic lines and records the sysfs paths.
func NewRealSensors(chip string, pinTrigger, pinEcho int, paths SensorPaths) (*RealSensors, error) {
	trigger, err := gpiocdev.RequestLine(chip, pinTrigger, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request trigger pin %d: %w", pinTrigger, err)
	}
	echo, err := gpiocdev.RequestLine(chip, pinEcho, gpiocdev.AsInput)
	if err != nil {
		trigger.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", pinEcho, err)
	}
	return &RealSensors{
		trigger:      trigger,
		echo:         echo,
		airTempPath:  paths.AirTemp,
		humidityPath: paths.Humidity,
		thermalPath:  paths.Thermal,
	}, nil
}

// WaterDistanceCm fires the ultrasonic trigger and times the echo pulse.
func (s *RealSensors) WaterDistanceCm() (float64, error) {
	// 10us trigger pulse per the HC-SR04 datasheet.
	if err := s.trigger.SetValue(1); err != nil {
		return 0, fmt.Errorf("trigger high: %w", err)
	}
	time.Sleep(10 * time.Microsecond)
	if err := s.trigger.SetValue(0); err != nil {
		return 0, fmt.Errorf("trigger low: %w", err)
	}

	start, err := s.waitEcho(1, 50*time.Millisecond)
	if err != nil {
		return 0, fmt.Errorf("echo start: %w", err)
	}
	end, err := s.waitEcho(0, 50*time.Millisecond)
	if err != nil {
		return 0, fmt.Errorf("echo end: %w", err)
	}

	// Speed of sound: 343 m/s, distance is half the round trip.
	cm := end.Sub(start).Seconds() * 34300 / 2
	return cm, nil
}

// waitEcho polls the echo line until it reads want or the deadline passes.
func (s *RealSensors) waitEcho(want int, timeout time.Duration) (time.Time, error) {
	deadline := time.Now().Add(timeout)
	for {
		v, err := s.echo.Value()
		if err != nil {
			return time.Time{}, err
		}
		now := time.Now()
		if v == want {
			return now, nil
		}
		if now.After(deadline) {
			return time.Time{}, fmt.Errorf("timeout waiting for echo=%d", want)
		}
	}
}

// AirTemperatureC reads the IIO temperature file.
func (s *RealSensors) AirTemperatureC() (float64, error) {
	return readMilliFile(s.airTempPath)
}

// HumidityPct reads the IIO relative humidity file.
func (s *RealSensors) HumidityPct() (float64, error) {
	return readMilliFile(s.humidityPath)
}

// BoardTemperatureC reads the SoC thermal zone.
func (s *RealSensors) BoardTemperatureC() (float64, error) {
	return readMilliFile(s.thermalPath)
}

// Close releases the ultrasonic lines.
func (s *RealSensors) Close() error {
	var errs []error
	if err := s.trigger.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.echo.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close sensors: %v", errs)
	}
	return nil
}

// readMilliFile reads a sysfs value expressed in thousandths (millidegrees,
// millipercent) and returns it scaled to units.
func readMilliFile(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v / 1000, nil
}
