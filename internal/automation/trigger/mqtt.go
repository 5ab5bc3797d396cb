package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/mqtt"
)

// Subscriber is the part of the MQTT client the mqtt trigger needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MQTT fires when a message arrives on a topic filter.
//
// Spec: {"type":"mqtt","topic":"sensors/+/alarm","qos":1}
//
// The broker subscription is shared by every automation using the same
// topic filter and is removed with the last one.
type MQTT struct {
	sub    Subscriber
	logger automation.Logger

	mu     sync.Mutex
	topics map[string]map[string]automation.FireFunc // topic -> automation id -> fire
}

// NewMQTT creates an mqtt trigger. sub may be nil when MQTT is disabled;
// binding then fails with ErrNoSubscriber.
func NewMQTT(sub Subscriber, logger automation.Logger) *MQTT {
	return &MQTT{
		sub:    sub,
		logger: loggerOr(logger),
		topics: make(map[string]map[string]automation.FireFunc),
	}
}

// Bind subscribes a to its topic.
func (m *MQTT) Bind(_ context.Context, a *automation.Automation, fire automation.FireFunc) (automation.Binding, error) {
	if m.sub == nil {
		return nil, ErrNoSubscriber
	}
	topic := a.Trigger.String("topic")
	if topic == "" {
		return nil, ErrInvalidTopic
	}
	qos := byte(a.Trigger.Int("qos", 0)) //nolint:gosec // validated by the client

	m.mu.Lock()
	defer m.mu.Unlock()

	fires, ok := m.topics[topic]
	if !ok {
		if err := m.sub.Subscribe(topic, qos, m.handler(topic)); err != nil {
			return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		fires = make(map[string]automation.FireFunc)
		m.topics[topic] = fires
	}
	fires[a.ID] = fire

	id := a.ID
	var once sync.Once
	return automation.BindingFunc(func() error {
		var err error
		once.Do(func() { err = m.release(topic, id) })
		return err
	}), nil
}

func (m *MQTT) release(topic, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fires, ok := m.topics[topic]
	if !ok {
		return nil
	}
	delete(fires, id)
	if len(fires) > 0 {
		return nil
	}
	delete(m.topics, topic)
	if err := m.sub.Unsubscribe(topic); err != nil {
		return fmt.Errorf("unsubscribing from %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) handler(filter string) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		m.mu.Lock()
		targets := make(map[string]automation.FireFunc, len(m.topics[filter]))
		for id, fire := range m.topics[filter] {
			targets[id] = fire
		}
		m.mu.Unlock()

		var body any
		if err := json.Unmarshal(payload, &body); err != nil {
			body = string(payload)
		}

		for id, fire := range targets {
			dispatch(fire, automation.ExecutionContext{
				Trigger:   "mqtt",
				Timestamp: time.Now().UTC(),
				Data: map[string]any{
					"topic":   topic,
					"payload": body,
				},
			}, m.logger, id)
		}
		return nil
	}
}
