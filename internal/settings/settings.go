// Package settings provides the persisted application settings document:
// alert thresholds, per-category enabled flags, notification options, and
// the plant-of-the-day notify time. The engines read point-in-time snapshots;
// the HTTP layer applies validated partial updates.
package settings

// Settings is the whole settings document. Temperature thresholds are in
// Fahrenheit (matching the dashboard), water distance in centimeters,
// humidity in percent.
type Settings struct {
	WaterAlertThresholdCm float64 `json:"water_alert_threshold"`
	AirTempHighAlertF     float64 `json:"air_temp_high_alert_threshold"`
	AirTempLowAlertF      float64 `json:"air_temp_low_alert_threshold"`
	HumidityLowAlertPct   float64 `json:"humidity_low_alert_threshold"`
	HumidityHighAlertPct  float64 `json:"humidity_high_alert_threshold"`
	BoardTempAlertF       float64 `json:"pcb_temp_alert_threshold"`

	WaterAlertsEnabled     bool `json:"water_level_alerts_enabled"`
	HumidityAlertsEnabled  bool `json:"humidity_alerts_enabled"`
	AirTempAlertsEnabled   bool `json:"air_temp_alerts_enabled"`
	BoardTempAlertsEnabled bool `json:"pcb_temp_alerts_enabled"`

	NotificationsEnabled bool   `json:"notifications_enabled"`
	CooldownMinutes      int    `json:"cooldown_minutes"`
	PlantNotifyTime      string `json:"plant_notify_time"`
	WebhookURL           string `json:"webhook_url,omitempty"`
}

// Defaults returns the settings used before the user changes anything.
// Alert categories start disabled so a fresh install never notifies.
func Defaults() Settings {
	return Settings{
		WaterAlertThresholdCm: 12.0,
		AirTempHighAlertF:     80.0,
		AirTempLowAlertF:      65.0,
		HumidityLowAlertPct:   40.0,
		HumidityHighAlertPct:  90.0,
		BoardTempAlertF:       110.0,
		NotificationsEnabled:  true,
		CooldownMinutes:       15,
		PlantNotifyTime:       "09:35",
	}
}

// ClampCooldown bounds the cooldown to 1-120 minutes.
func ClampCooldown(minutes int) int {
	if minutes < 1 {
		return 1
	}
	if minutes > 120 {
		return 120
	}
	return minutes
}

// Patch holds partial settings updates; nil fields are left unchanged.
type Patch struct {
	WaterAlertThresholdCm *float64 `json:"water_alert_threshold"`
	AirTempHighAlertF     *float64 `json:"air_temp_high_alert_threshold"`
	AirTempLowAlertF      *float64 `json:"air_temp_low_alert_threshold"`
	HumidityLowAlertPct   *float64 `json:"humidity_low_alert_threshold"`
	HumidityHighAlertPct  *float64 `json:"humidity_high_alert_threshold"`
	BoardTempAlertF       *float64 `json:"pcb_temp_alert_threshold"`

	WaterAlertsEnabled     *bool `json:"water_level_alerts_enabled"`
	HumidityAlertsEnabled  *bool `json:"humidity_alerts_enabled"`
	AirTempAlertsEnabled   *bool `json:"air_temp_alerts_enabled"`
	BoardTempAlertsEnabled *bool `json:"pcb_temp_alerts_enabled"`

	NotificationsEnabled *bool   `json:"notifications_enabled"`
	CooldownMinutes      *int    `json:"cooldown_minutes"`
	PlantNotifyTime      *string `json:"plant_notify_time"`
	WebhookURL           *string `json:"webhook_url"`
}

func (s Settings) applied(p Patch) Settings {
	if p.WaterAlertThresholdCm != nil {
		s.WaterAlertThresholdCm = *p.WaterAlertThresholdCm
	}
	if p.AirTempHighAlertF != nil {
		s.AirTempHighAlertF = *p.AirTempHighAlertF
	}
	if p.AirTempLowAlertF != nil {
		s.AirTempLowAlertF = *p.AirTempLowAlertF
	}
	if p.HumidityLowAlertPct != nil {
		s.HumidityLowAlertPct = *p.HumidityLowAlertPct
	}
	if p.HumidityHighAlertPct != nil {
		s.HumidityHighAlertPct = *p.HumidityHighAlertPct
	}
	if p.BoardTempAlertF != nil {
		s.BoardTempAlertF = *p.BoardTempAlertF
	}
	if p.WaterAlertsEnabled != nil {
		s.WaterAlertsEnabled = *p.WaterAlertsEnabled
	}
	if p.HumidityAlertsEnabled != nil {
		s.HumidityAlertsEnabled = *p.HumidityAlertsEnabled
	}
	if p.AirTempAlertsEnabled != nil {
		s.AirTempAlertsEnabled = *p.AirTempAlertsEnabled
	}
	if p.BoardTempAlertsEnabled != nil {
		s.BoardTempAlertsEnabled = *p.BoardTempAlertsEnabled
	}
	if p.NotificationsEnabled != nil {
		s.NotificationsEnabled = *p.NotificationsEnabled
	}
	if p.CooldownMinutes != nil {
		s.CooldownMinutes = ClampCooldown(*p.CooldownMinutes)
	}
	if p.PlantNotifyTime != nil {
		s.PlantNotifyTime = *p.PlantNotifyTime
	}
	if p.WebhookURL != nil {
		s.WebhookURL = *p.WebhookURL
	}
	return s
}
