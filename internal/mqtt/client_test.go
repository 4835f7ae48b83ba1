package mqtt

import (
	"testing"

	"saj2mqtt/internal/util"

	"github.com/stretchr/testify/assert"
)

func TestCommandTopicParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/command/read_register"
	r := commandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "read_register", "command extract")
}

func TestCommandTopicParseFailOnResult(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/command/read_register/result"
	r := commandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestCommandTopicParseFailOnSensorState(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/sensor/pv_power/state"
	r := commandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestClientTopics(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	client := CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)

	assert.Equal("saj2mqtt/bridge/state", client.BridgeStateTopic())
	assert.Equal("saj2mqtt/sensor/pv_power/state", client.SensorStateTopic("pv_power"))
	assert.Equal("saj2mqtt/command/read_register/result", client.CommandResultTopic("read_register"))
}
