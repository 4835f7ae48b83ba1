package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCadence(t *testing.T) {
	assert := assert.New(t)

	c, err := ParseCadence("disabled", 0)
	assert.Nil(err)
	assert.Equal(CadenceDisabled, c.Mode)

	c, err = ParseCadence(" Startup ", 0)
	assert.Nil(err)
	assert.Equal(CadenceStartup, c.Mode)

	c, err = ParseCadence("30s", 0)
	assert.Nil(err)
	assert.Equal(CadencePeriodic, c.Mode)
	assert.Equal(30*time.Second, c.Interval)

	c, err = ParseCadence("5m", 0)
	assert.Nil(err)
	assert.Equal(5*time.Minute, c.Interval)

	_, err = ParseCadence("often", 0)
	assert.NotNil(err)

	_, err = ParseCadence("-10s", 0)
	assert.NotNil(err)

	_, err = ParseCadence("0s", 0)
	assert.NotNil(err)
}

func TestParseCadenceMinInterval(t *testing.T) {
	assert := assert.New(t)

	// below the minimum is rejected outright, never rounded up
	_, err := ParseCadence("5s", MinFastPollInterval)
	assert.NotNil(err)
	assert.Contains(err.Error(), "minimum")

	c, err := ParseCadence("10s", MinFastPollInterval)
	assert.Nil(err)
	assert.Equal(10*time.Second, c.Interval)

	// startup and disabled bypass the floor
	c, err = ParseCadence("startup", MinFastPollInterval)
	assert.Nil(err)
	assert.Equal(CadenceStartup, c.Mode)

	c, err = ParseCadence("disabled", MinFastPollInterval)
	assert.Nil(err)
	assert.Equal(CadenceDisabled, c.Mode)
}

func TestPollConfigParse(t *testing.T) {
	assert := assert.New(t)

	plan, err := PollConfig{
		Realtime:          "1m",
		InverterInfo:      "startup",
		BatteryInfo:       "startup",
		BatteryController: "1m",
		Config:            "5m",
	}.Parse()
	assert.Nil(err)
	assert.Equal(CadencePeriodic, plan.Realtime.Mode)
	assert.Equal(time.Minute, plan.Realtime.Interval)
	assert.Equal(CadenceStartup, plan.InverterInfo.Mode)
	assert.Equal(5*time.Minute, plan.Config.Interval)

	// the fast datasets carry the interval floor
	_, err = PollConfig{
		Realtime:          "5s",
		InverterInfo:      "startup",
		BatteryInfo:       "startup",
		BatteryController: "1m",
		Config:            "5m",
	}.Parse()
	assert.NotNil(err)
	assert.Contains(err.Error(), "poll.realtime")

	_, err = PollConfig{
		Realtime:          "1m",
		InverterInfo:      "startup",
		BatteryInfo:       "startup",
		BatteryController: "9s",
		Config:            "5m",
	}.Parse()
	assert.NotNil(err)
	assert.Contains(err.Error(), "poll.battery_controller")

	// the slow datasets do not
	plan, err = PollConfig{
		Realtime:          "1m",
		InverterInfo:      "2s",
		BatteryInfo:       "disabled",
		BatteryController: "disabled",
		Config:            "2s",
	}.Parse()
	assert.Nil(err)
	assert.Equal(2*time.Second, plan.InverterInfo.Interval)
	assert.Equal(CadenceDisabled, plan.BatteryInfo.Mode)
}

func TestCheckMQTTTopic(t *testing.T) {
	assert := assert.New(t)

	topic, err := CheckMQTTTopic("Saj2MQTT")
	assert.Nil(err)
	assert.Equal("saj2mqtt", topic)

	_, err = CheckMQTTTopic("bad/topic")
	assert.NotNil(err)

	_, err = CheckMQTTTopic("")
	assert.NotNil(err)
}

func TestCheckSerialNumber(t *testing.T) {
	assert := assert.New(t)

	serial, err := CheckSerialNumber(" H1S2602J2119E01121 ")
	assert.Nil(err)
	assert.Equal("H1S2602J2119E01121", serial)

	_, err = CheckSerialNumber("")
	assert.NotNil(err)

	_, err = CheckSerialNumber("bad serial")
	assert.NotNil(err)
}

func TestCadenceString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("disabled", Cadence{Mode: CadenceDisabled}.String())
	assert.Equal("startup", Cadence{Mode: CadenceStartup}.String())
	assert.Equal("1m0s", Cadence{Mode: CadencePeriodic, Interval: time.Minute}.String())
}
