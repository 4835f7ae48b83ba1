package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// MinFastPollInterval is the lowest periodic cadence accepted for the
// realtime and battery_controller datasets. Values below it are a
// config error, not a clamp.
const MinFastPollInterval = 10 * time.Second

type Config struct {
	LogLevel  zapcore.Level
	LogAsJson bool `mapstructure:"log_as_json"`

	Inverter InverterConfig `mapstructure:"inverter"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Poll     PollConfig     `mapstructure:"poll"`

	// PollPlan is filled from Poll after unmarshal
	PollPlan PollPlan `mapstructure:"-"`

	Port    uint `mapstructure:"port"`
	HttpLog bool `mapstructure:"http_log"`
}

type InverterConfig struct {
	SerialNumber         string `mapstructure:"serial_number"`
	RequestTimeoutMillis uint32 `mapstructure:"request_timeout_millis"`
	RequestRetries       uint   `mapstructure:"request_retries"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// PollConfig carries the raw per-dataset cadence values: "disabled",
// "startup" or a duration such as "30s".
type PollConfig struct {
	Realtime          string `mapstructure:"realtime"`
	InverterInfo      string `mapstructure:"inverter_info"`
	BatteryInfo       string `mapstructure:"battery_info"`
	BatteryController string `mapstructure:"battery_controller"`
	Config            string `mapstructure:"config"`
}

type CadenceMode int

const (
	CadenceDisabled CadenceMode = iota
	CadenceStartup
	CadencePeriodic
)

// Cadence is a parsed dataset poll schedule.
type Cadence struct {
	Mode     CadenceMode
	Interval time.Duration
}

func (c Cadence) String() string {
	switch c.Mode {
	case CadenceDisabled:
		return "disabled"
	case CadenceStartup:
		return "startup"
	default:
		return c.Interval.String()
	}
}

type PollPlan struct {
	Realtime          Cadence
	InverterInfo      Cadence
	BatteryInfo       Cadence
	BatteryController Cadence
	Config            Cadence
}

func ParseCadence(value string, minInterval time.Duration) (Cadence, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "disabled":
		return Cadence{Mode: CadenceDisabled}, nil
	case "startup":
		return Cadence{Mode: CadenceStartup}, nil
	}
	interval, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return Cadence{}, fmt.Errorf("cadence must be \"disabled\", \"startup\" or a duration: %q", value)
	}
	if interval <= 0 {
		return Cadence{}, fmt.Errorf("cadence interval must be positive: %q", value)
	}
	if minInterval > 0 && interval < minInterval {
		return Cadence{}, fmt.Errorf("cadence interval %s is below the %s minimum", interval, minInterval)
	}
	return Cadence{Mode: CadencePeriodic, Interval: interval}, nil
}

// Parse validates the raw cadence values. The fast changing datasets
// carry a minimum periodic interval to protect the device link.
func (pc PollConfig) Parse() (PollPlan, error) {
	var plan PollPlan
	var err error

	if plan.Realtime, err = ParseCadence(pc.Realtime, MinFastPollInterval); err != nil {
		return PollPlan{}, fmt.Errorf("poll.realtime: %w", err)
	}
	if plan.InverterInfo, err = ParseCadence(pc.InverterInfo, 0); err != nil {
		return PollPlan{}, fmt.Errorf("poll.inverter_info: %w", err)
	}
	if plan.BatteryInfo, err = ParseCadence(pc.BatteryInfo, 0); err != nil {
		return PollPlan{}, fmt.Errorf("poll.battery_info: %w", err)
	}
	if plan.BatteryController, err = ParseCadence(pc.BatteryController, MinFastPollInterval); err != nil {
		return PollPlan{}, fmt.Errorf("poll.battery_controller: %w", err)
	}
	if plan.Config, err = ParseCadence(pc.Config, 0); err != nil {
		return PollPlan{}, fmt.Errorf("poll.config: %w", err)
	}
	return plan, nil
}

func (c InverterConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// CheckSerialNumber validates the inverter serial used to derive the
// device link topics.
func CheckSerialNumber(serial string) (string, error) {
	trimmed := strings.TrimSpace(serial)
	if trimmed == "" {
		return "", errors.New("inverter serial number is required")
	}
	serialRegexp := regexp.MustCompile("^[A-Za-z0-9_-]+$")
	if !serialRegexp.MatchString(trimmed) {
		return "", errors.New("invalid serial number. can only contain letters, numbers, dashes and underscores")
	}
	return trimmed, nil
}
