package saj_mqtt

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Transport moves raw frames between the bridge and the inverter comm
// module. Handlers survive reconnects.
type Transport interface {
	Open() error
	Close() error
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
}

// the device protocol requires QoS 2 delivery on both directions
const (
	transportQOS     = 2
	transportTimeout = 10 * time.Second
)

type mqttTransport struct {
	client mqtt.Client
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]func(topic string, payload []byte)
}

// CreateMQTTTransport builds a Transport backed by its own broker
// connection, independent from any northbound MQTT traffic.
func CreateMQTTTransport(brokerURL string, username string, password string, logger *zap.Logger) Transport {
	t := &mqttTransport{
		logger: logger,
		subs:   make(map[string]func(topic string, payload []byte)),
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("saj2mqtt_dev_%d", rand.Intn(1000)))
	if username != "" && password != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(true)
	opts.OnConnect = t.onConnect
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("device link lost, reconnecting", zap.Error(err))
	}
	t.client = mqtt.NewClient(opts)
	return t
}

func (t *mqttTransport) Open() error {
	token := t.client.Connect()
	if !token.WaitTimeout(transportTimeout) {
		return fmt.Errorf("saj: device link connect timed out")
	}
	return token.Error()
}

func (t *mqttTransport) Close() error {
	t.client.Disconnect(500)
	return nil
}

func (t *mqttTransport) Publish(topic string, payload []byte) error {
	token := t.client.Publish(topic, transportQOS, false, payload)
	if !token.WaitTimeout(transportTimeout) {
		return fmt.Errorf("saj: publish to %s timed out", topic)
	}
	return token.Error()
}

func (t *mqttTransport) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	t.mu.Lock()
	t.subs[topic] = handler
	t.mu.Unlock()

	token := t.client.Subscribe(topic, transportQOS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(transportTimeout) {
		return fmt.Errorf("saj: subscribe to %s timed out", topic)
	}
	return token.Error()
}

// onConnect restores subscriptions after a broker reconnect.
func (t *mqttTransport) onConnect(client mqtt.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for topic, handler := range t.subs {
		handler := handler
		token := client.Subscribe(topic, transportQOS, func(_ mqtt.Client, msg mqtt.Message) {
			handler(msg.Topic(), msg.Payload())
		})
		go func(topic string) {
			if token.WaitTimeout(transportTimeout) && token.Error() != nil {
				t.logger.Error("could not restore subscription", zap.String("topic", topic), zap.Error(token.Error()))
			}
		}(topic)
	}
}
