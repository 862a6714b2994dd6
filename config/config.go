package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Alexa         AlexaConfig         `yaml:"alexa"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	HTTP          HTTPConfig          `yaml:"http"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	Automations   AutomationsConfig   `yaml:"automations"`
	Log           LogConfig           `yaml:"log"`
}

type AlexaConfig struct {
	Entities            []string `yaml:"entities"`
	DefaultModeForOn    string   `yaml:"default_mode_for_on"`
	Scale               string   `yaml:"scale"`
	RefetchAfterCommand bool     `yaml:"refetch_after_command"`
	Manufacturer        string   `yaml:"manufacturer"`
	Description         string   `yaml:"description"`

	// Older Home Assistant releases use climate.set_operation_mode with an
	// operation_mode field.
	SetTemperatureService string `yaml:"set_temperature_service"`
	SetModeService        string `yaml:"set_mode_service"`
	ModeField             string `yaml:"mode_field"`
}

type HomeAssistantConfig struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Timeout string `yaml:"timeout"`
}

type HTTPConfig struct {
	Addr       string `yaml:"addr"`
	RateLimit  int    `yaml:"rate_limit"`
	RateWindow string `yaml:"rate_window"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type AutomationsConfig struct {
	PollInterval     string                  `yaml:"poll_interval"`
	BatteryLow       []BatteryLowConfig      `yaml:"battery_low"`
	SensorSwitches   []SensorSwitchesConfig  `yaml:"sensor_switches"`
	MQTTServiceCalls []MQTTServiceCallConfig `yaml:"mqtt_service_calls"`
	WallPanels       []WallPanelConfig       `yaml:"wall_panels"`
}

type BatteryLowConfig struct {
	SensorEntity     string  `yaml:"sensor_entity"`
	NotifyService    string  `yaml:"notify_service"`
	ThresholdPercent float64 `yaml:"threshold_percent"`
	DeviceName       string  `yaml:"device_name"`
}

type SensorSwitchesConfig struct {
	SensorEntity        string   `yaml:"sensor_entity"`
	SwitchEntities      []string `yaml:"switch_entities"`
	TurnOnClosedToOpen  bool     `yaml:"turn_on_closed_to_open"`
	TurnOffOpenToClosed bool     `yaml:"turn_off_open_to_closed"`
}

type MQTTServiceCallConfig struct {
	Topic   string         `yaml:"topic"`
	Payload string         `yaml:"payload"`
	Service string         `yaml:"service"`
	Data    map[string]any `yaml:"data"`
}

type WallPanelConfig struct {
	SensorEntity string `yaml:"sensor_entity"`
	SensorTopic  string `yaml:"sensor_topic"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := defaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig holds defaults whose zero value is a valid setting, so they
// are only replaced when the key is present.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{QoS: 1},
	}
}

func (c *Config) setDefaults() {
	if c.Alexa.Scale == "" {
		c.Alexa.Scale = "CELSIUS"
	}
	c.Alexa.Scale = strings.ToUpper(c.Alexa.Scale)
	if c.Alexa.Manufacturer == "" {
		c.Alexa.Manufacturer = "Home Assistant"
	}
	if c.Alexa.Description == "" {
		c.Alexa.Description = "Home Assistant climate entity"
	}
	if c.Alexa.SetTemperatureService == "" {
		c.Alexa.SetTemperatureService = "climate.set_temperature"
	}
	if c.Alexa.SetModeService == "" {
		c.Alexa.SetModeService = "climate.set_hvac_mode"
	}
	if c.Alexa.ModeField == "" {
		c.Alexa.ModeField = "hvac_mode"
	}
	if c.HomeAssistant.Timeout == "" {
		c.HomeAssistant.Timeout = "15s"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 60
	}
	if c.HTTP.RateWindow == "" {
		c.HTTP.RateWindow = "1m"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "alexa-climate-bridge"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "alexa-bridge"
	}
	if c.InfluxDB.BatchSize == 0 {
		c.InfluxDB.BatchSize = 100
	}
	if c.InfluxDB.FlushInterval == 0 {
		c.InfluxDB.FlushInterval = 10
	}
	if c.Automations.PollInterval == "" {
		c.Automations.PollInterval = "30s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.HomeAssistant.URL == "" {
		errs = append(errs, "home_assistant.url is required")
	}
	if c.HomeAssistant.Token == "" {
		errs = append(errs, "home_assistant.token is required")
	}
	if len(c.Alexa.Entities) == 0 {
		errs = append(errs, "alexa.entities must list at least one climate entity")
	}
	for _, id := range c.Alexa.Entities {
		if !strings.Contains(id, ".") {
			errs = append(errs, fmt.Sprintf("alexa.entities: %q is not an entity id", id))
		}
	}
	if c.Alexa.DefaultModeForOn == "" {
		errs = append(errs, "alexa.default_mode_for_on is required")
	}
	if c.Alexa.Scale != "CELSIUS" && c.Alexa.Scale != "FAHRENHEIT" {
		errs = append(errs, fmt.Sprintf("alexa.scale must be CELSIUS or FAHRENHEIT, got %q", c.Alexa.Scale))
	}

	errs = appendDurationErr(errs, "home_assistant.timeout", c.HomeAssistant.Timeout)
	errs = appendDurationErr(errs, "http.rate_window", c.HTTP.RateWindow)
	errs = appendDurationErr(errs, "automations.poll_interval", c.Automations.PollInterval)

	if c.HTTP.RateLimit < 0 {
		errs = append(errs, "http.rate_limit cannot be negative")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Sprintf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
		}
	} else if len(c.Automations.MQTTServiceCalls) > 0 || len(c.Automations.WallPanels) > 0 {
		errs = append(errs, "automations.mqtt_service_calls and automations.wall_panels need mqtt.enabled")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	for i, b := range c.Automations.BatteryLow {
		if b.SensorEntity == "" {
			errs = append(errs, fmt.Sprintf("automations.battery_low[%d].sensor_entity is required", i))
		}
		if b.ThresholdPercent <= 0 || b.ThresholdPercent > 100 {
			errs = append(errs, fmt.Sprintf("automations.battery_low[%d].threshold_percent must be in (0, 100]", i))
		}
		if b.NotifyService == "" && !c.Pushover.Enabled {
			errs = append(errs, fmt.Sprintf("automations.battery_low[%d] needs notify_service or pushover.enabled", i))
		}
	}
	for i, s := range c.Automations.SensorSwitches {
		if s.SensorEntity == "" || len(s.SwitchEntities) == 0 {
			errs = append(errs, fmt.Sprintf("automations.sensor_switches[%d] needs sensor_entity and switch_entities", i))
		}
	}
	for i, m := range c.Automations.MQTTServiceCalls {
		if m.Topic == "" || m.Service == "" {
			errs = append(errs, fmt.Sprintf("automations.mqtt_service_calls[%d] needs topic and service", i))
		}
	}
	for i, w := range c.Automations.WallPanels {
		if w.SensorEntity == "" || w.SensorTopic == "" {
			errs = append(errs, fmt.Sprintf("automations.wall_panels[%d] needs sensor_entity and sensor_topic", i))
		}
	}

	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

func appendDurationErr(errs []string, field, value string) []string {
	if _, err := time.ParseDuration(value); err != nil {
		return append(errs, fmt.Sprintf("%s: %v", field, err))
	}
	return errs
}

// Duration parses a validated duration field.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
