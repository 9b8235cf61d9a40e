package stream

import (
	"fmt"
	"strings"

	"github.com/eclipse/paho.mqtt.golang"
)

// PublishClient is the part of mqtt.Client a Publisher needs.
type PublishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends every buffer written to it as one MQTT message.
type Publisher struct {
	client PublishClient
	topic  string
	qos    byte
}

// NewPublisher creates a Publisher for topic.
func NewPublisher(client PublishClient, topic string, qos byte) *Publisher {
	p := new(Publisher)
	p.client = client
	p.topic = topic
	p.qos = qos
	return p
}

// StreamTopic expands pattern for an animation name. Patterns without %s get
// the name appended as a path segment.
func StreamTopic(pattern, name string) string {
	if strings.Contains(pattern, "%s") {
		return fmt.Sprintf(pattern, name)
	}
	return strings.TrimSuffix(pattern, "/") + "/" + name
}

// Topic returns the topic messages are published to.
func (p *Publisher) Topic() string {
	return p.topic
}

// Write publishes b and waits for the broker to accept it.
func (p *Publisher) Write(b []byte) (int, error) {
	payload := make([]byte, len(b))
	copy(payload, b)
	token := p.client.Publish(p.topic, p.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("publish %s: %w", p.topic, err)
	}
	return len(b), nil
}
