package util

import (
	"time"

	"saj2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Inverter: config.InverterConfig{
			SerialNumber:         "H1S2602J2119E01121",
			RequestTimeoutMillis: 1000,
			RequestRetries:       2,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "saj2mqtt",
		},
		Poll: config.PollConfig{
			Realtime:          "1m",
			InverterInfo:      "startup",
			BatteryInfo:       "startup",
			BatteryController: "1m",
			Config:            "5m",
		},
		PollPlan: config.PollPlan{
			Realtime:          config.Cadence{Mode: config.CadencePeriodic, Interval: time.Minute},
			InverterInfo:      config.Cadence{Mode: config.CadenceStartup},
			BatteryInfo:       config.Cadence{Mode: config.CadenceStartup},
			BatteryController: config.Cadence{Mode: config.CadencePeriodic, Interval: time.Minute},
			Config:            config.Cadence{Mode: config.CadencePeriodic, Interval: 5 * time.Minute},
		},
		Port: 8080,
	}
}
