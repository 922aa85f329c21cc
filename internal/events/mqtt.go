package events

import (
	"context"
	"errors"
)

// mqttPublisher is the part of the MQTT client the publisher needs.
type mqttPublisher interface {
	Publish(topic string, retained bool, payload []byte) error
	IsConnected() bool
}

var errMQTTDisconnected = errors.New("mqtt client not connected")

// MQTT publishes events as retained JSON messages so late subscribers see
// the latest snapshot immediately.
type MQTT struct {
	client mqttPublisher
	topic  string
}

func NewMQTT(client mqttPublisher, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

var _ Publisher = (*MQTT)(nil)

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Publish(_ context.Context, ev SnapshotEvent) error {
	if !m.client.IsConnected() {
		return errMQTTDisconnected
	}
	data, err := marshal(ev)
	if err != nil {
		return err
	}
	return m.client.Publish(m.topic, true, data)
}
