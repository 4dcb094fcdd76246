package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"i4.energy/across/wifigw/wifi"
)

// Bridge mirrors device state to an MQTT broker and serves ping
// requests arriving over it.
//
// Topics, under the configured prefix:
//
//	<prefix>/event/state  last lifecycle state, retained
//	<prefix>/event/ping   ping results
//	<prefix>/cmd/ping     host to ping, plain text
type Bridge struct {
	client mqtt.Client
	prefix string
	logger *slog.Logger
}

type pingResult struct {
	Host  string `json:"host"`
	OK    bool   `json:"ok"`
	RTTMs int64  `json:"rtt_ms,omitempty"`
}

// NewBridge connects to the broker and subscribes to the command
// topics. The subscription is installed from the on-connect handler, so
// it survives reconnects.
func NewBridge(broker, prefix string, device *wifi.Device, logger *slog.Logger) (*Bridge, error) {
	b := &Bridge{prefix: prefix, logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("wifigw-" + uuid.NewString())
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		topic := prefix + "/cmd/ping"
		logger.Info("MQTT connected, subscribing", "topic", topic)
		token := c.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			b.handlePing(device, string(msg.Payload()))
		})
		if token.Wait() && token.Error() != nil {
			logger.Error("MQTT subscribe failed", "topic", topic, "error", token.Error())
		}
	})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return b, nil
}

func (b *Bridge) handlePing(device *wifi.Device, payload string) {
	host := strings.TrimSpace(payload)
	if host == "" {
		b.logger.Warn("MQTT ping request without a host")
		return
	}

	rtt, ok, err := device.Ping(host)
	if err != nil {
		b.logger.Error("MQTT ping failed", "host", host, "error", err)
		return
	}

	result := pingResult{Host: host, OK: ok}
	if ok {
		result.RTTMs = rtt.Milliseconds()
	}
	out, err := json.Marshal(result)
	if err != nil {
		return
	}
	token := b.client.Publish(b.prefix+"/event/ping", 0, false, out)
	if token.Wait() && token.Error() != nil {
		b.logger.Error("MQTT publish failed", "error", token.Error())
	}
}

// PublishState mirrors a lifecycle state to the broker, retained so a
// late subscriber sees the current one.
func (b *Bridge) PublishState(state string) {
	b.client.Publish(b.prefix+"/event/state", 0, true, state)
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.client.Disconnect(500)
}
