// Command garden-controller runs the gardening appliance: schedule-driven
// light and pump control, threshold alerts, telemetry publishing, and the
// HTTP control surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sweeney/garden-controller/internal/alerts"
	"github.com/sweeney/garden-controller/internal/config"
	"github.com/sweeney/garden-controller/internal/hardware"
	"github.com/sweeney/garden-controller/internal/notify"
	"github.com/sweeney/garden-controller/internal/plantday"
	"github.com/sweeney/garden-controller/internal/rules"
	"github.com/sweeney/garden-controller/internal/schedule"
	"github.com/sweeney/garden-controller/internal/settings"
	"github.com/sweeney/garden-controller/internal/status"
	"github.com/sweeney/garden-controller/internal/telemetry"
	"github.com/sweeney/garden-controller/internal/web"
)

// Tick cadence divisors. The scheduler and daily jobs run every tick, alerts
// every second tick, sensor snapshots every twentieth.
const (
	alertEvery    = 2
	snapshotEvery = 20
)

func main() {
	configPath := flag.String("config", "", "YAML config file (empty to skip)")
	device := flag.String("device", "", "Device name used in MQTT topics")
	tick := flag.Duration("tick", 0, "Driver tick interval")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable telemetry)")
	httpAddr := flag.String("http", "", "HTTP address (empty to disable)")
	dataDir := flag.String("data", "", "Directory for persisted state")
	webhookURL := flag.String("webhook", "", "Notification webhook URL")
	pinLight := flag.Int("pin-light", 0, "BCM pin number for the light relay")
	pinPump := flag.Int("pin-pump", 0, "BCM pin number for the pump relay")
	pinTrigger := flag.Int("pin-trigger", 0, "BCM pin number for the sonar trigger")
	pinEcho := flag.Int("pin-echo", 0, "BCM pin number for the sonar echo")
	pwmLight := flag.String("pwm-light", "/sys/class/pwm/pwmchip0/pwm0", "PWM channel directory for the light dimmer (empty to disable)")
	pwmPump := flag.String("pwm-pump", "/sys/class/pwm/pwmchip0/pwm1", "PWM channel directory for the pump speed (empty to disable)")
	chip := flag.String("chip", "gpiochip0", "GPIO chip name")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	// Flags beat env and file, but only when set explicitly.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = *device
		case "tick":
			cfg.Tick = *tick
		case "broker":
			cfg.Broker = *broker
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "data":
			cfg.DataDir = *dataDir
		case "webhook":
			cfg.WebhookURL = *webhookURL
		case "pin-light":
			cfg.Pins.Light = *pinLight
		case "pin-pump":
			cfg.Pins.Pump = *pinPump
		case "pin-trigger":
			cfg.Pins.Trigger = *pinTrigger
		case "pin-echo":
			cfg.Pins.Echo = *pinEcho
		}
	})

	if err := run(cfg, *chip, *pwmLight, *pwmPump); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, chip, pwmLight, pwmPump string) error {
	light, err := hardware.NewRealLight(chip, cfg.Pins.Light, pwmLight)
	if err != nil {
		return fmt.Errorf("init light: %w", err)
	}
	defer light.Close()

	pump, err := hardware.NewRealPump(chip, cfg.Pins.Pump, pwmPump)
	if err != nil {
		return fmt.Errorf("init pump: %w", err)
	}
	defer pump.Close()

	sensors, err := hardware.NewRealSensors(chip, cfg.Pins.Trigger, cfg.Pins.Echo, hardware.DefaultSensorPaths())
	if err != nil {
		return fmt.Errorf("init sensors: %w", err)
	}
	defer sensors.Close()

	var publisher telemetry.Publisher = telemetry.NopPublisher{}
	var connStatus telemetry.ConnectionStatus
	if cfg.Broker != "" {
		real, err := telemetry.NewRealPublisher(cfg.Broker, cfg.Device)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		publisher = real
		connStatus = real
	}
	defer publisher.Close()

	ruleStore := rules.NewStore(filepath.Join(cfg.DataDir, "schedule_rules.json"))
	settingsStore := settings.NewStore(filepath.Join(cfg.DataDir, "settings.json"))
	stateStore := alerts.NewStateStore(filepath.Join(cfg.DataDir, "alert_state.json"))
	plantStore := plantday.NewStore(cfg.DataDir)

	webhook := notify.NewWebhook(func() string {
		if url := settingsStore.Get().WebhookURL; url != "" {
			return url
		}
		return cfg.WebhookURL
	})

	engine := schedule.New(ruleStore, light, pump, publisher)
	alertEngine := alerts.NewEngine(stateStore, sensors, settingsStore.Get, webhook)
	fetcher := plantday.NewFetcher(plantStore, plantday.DefaultAPIBase, cfg.PlantAPIKey)
	runner := plantday.NewRunner(plantStore, fetcher, webhook, func() string {
		return settingsStore.Get().PlantNotifyTime
	})

	tracker := status.NewTracker(time.Now(), status.Config{
		TickSeconds: int64(cfg.Tick / time.Second),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		DataDir:     cfg.DataDir,
		Device:      cfg.Device,
	})

	if err := publisher.PublishSystem(telemetry.SystemEvent{
		Timestamp: time.Now(),
		Event:     "STARTUP",
		Retained:  true,
	}); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, ruleStore, settingsStore, pump, publisher, webhook)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: tick=%v broker=%s data=%s device=%s", cfg.Tick, cfg.Broker, cfg.DataDir, cfg.Device)

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &driver{
		engine:      engine,
		alertEngine: alertEngine,
		runner:      runner,
		sensors:     sensors,
		publisher:   publisher,
		connStatus:  connStatus,
		states:      stateStore,
		tracker:     tracker,
		notifier:    webhook,
	}
	return d.runLoop(time.Now, ticker.C, sigCh)
}

// driver owns the per-tick work of the daemon.
type driver struct {
	engine      *schedule.Engine
	alertEngine *alerts.Engine
	runner      *plantday.Runner
	sensors     hardware.Sensors
	publisher   telemetry.Publisher
	connStatus  telemetry.ConnectionStatus
	states      *alerts.StateStore
	tracker     *status.Tracker
	notifier    notify.Notifier

	tickCount uint64
}

// runLoop drives the daemon until a shutdown signal arrives. The first tick
// runs immediately so a restart re-applies the schedule without waiting.
func (d *driver) runLoop(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	d.step(now())

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := telemetry.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			d.step(now())
		}
	}
}

// step runs one driver tick. A panic in any stage is contained so one bad
// cycle cannot kill the daemon.
func (d *driver) step(t time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("tick panic: %v", r)
			if err := d.notifier.Send(fmt.Sprintf("⚠️ *Garden – Runtime error*\n%v", r)); err != nil {
				log.Printf("could not send runtime error notification: %v", err)
			}
		}
	}()

	n := d.tickCount
	d.tickCount++

	d.engine.Tick(t)
	d.runner.Run(t)

	if n%alertEvery == 0 {
		d.alertEngine.Run(t)
	}
	if n%snapshotEvery == 0 {
		d.recordSnapshot(t)
	}

	d.tracker.Update(d.engine.LightBrightness(), d.engine.PumpOn(), d.engine.PendingOffs())
	keys := d.states.InAlarmKeys()
	inAlarm := make([]string, 0, len(keys))
	for _, k := range keys {
		inAlarm = append(inAlarm, string(k))
	}
	d.tracker.SetInAlarm(inAlarm)
	if d.connStatus != nil {
		d.tracker.SetMQTTConnected(d.connStatus.IsConnected())
	}
}

// recordSnapshot reads every sensor and publishes whatever was readable.
// Failed reads are logged and left out of the payload.
func (d *driver) recordSnapshot(t time.Time) {
	snap := telemetry.Snapshot{Timestamp: t}

	if v, err := d.sensors.WaterDistanceCm(); err != nil {
		log.Printf("snapshot: water distance read failed: %v", err)
	} else {
		snap.WaterDistanceCm = &v
	}
	if v, err := d.sensors.AirTemperatureC(); err != nil {
		log.Printf("snapshot: air temperature read failed: %v", err)
	} else {
		snap.AirTempC = &v
	}
	if v, err := d.sensors.HumidityPct(); err != nil {
		log.Printf("snapshot: humidity read failed: %v", err)
	} else {
		snap.HumidityPct = &v
	}
	if v, err := d.sensors.BoardTemperatureC(); err != nil {
		log.Printf("snapshot: board temperature read failed: %v", err)
	} else {
		snap.BoardTempC = &v
	}
	if pct := d.engine.LightBrightness(); pct >= 0 {
		snap.LightPct = &pct
	}

	if err := d.publisher.PublishSnapshot(snap); err != nil {
		log.Printf("snapshot publish error: %v", err)
	}
}
