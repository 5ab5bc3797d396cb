package action

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// MQTTPublish publishes a message to the broker.
//
// Spec: {"type":"mqtt_publish","topic":"home/${body.room}/light","payload":{"on":true},
// "qos":1,"retained":false}
//
// A string payload is template-expanded and sent as is; anything else is
// JSON-encoded with its string values expanded.
type MQTTPublish struct {
	Publisher Publisher
}

// Execute publishes the payload.
func (m *MQTTPublish) Execute(_ context.Context, spec automation.Spec, ec automation.ExecutionContext, h automation.Handle) (any, error) {
	if m.Publisher == nil {
		return nil, ErrMQTTDisabled
	}

	vars := ec.Vars()
	topic := automation.Expand(spec.String("topic"), vars)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic", ErrMissingField)
	}

	var payload []byte
	switch p := spec["payload"].(type) {
	case nil:
		payload = []byte{}
	case string:
		payload = []byte(automation.Expand(p, vars))
	default:
		data, err := json.Marshal(expandValue(p, vars))
		if err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
		payload = data
	}

	qos := byte(spec.Int("qos", 0)) //nolint:gosec // range checked by the client
	retained := spec.Bool("retained", false)

	if err := m.Publisher.Publish(topic, payload, qos, retained); err != nil {
		return nil, fmt.Errorf("publishing to %s: %w", topic, err)
	}
	h.Logger().Debug("mqtt message published", "topic", topic, "bytes", len(payload))
	return map[string]any{"topic": topic, "bytes": len(payload)}, nil
}

// expandValue expands templates in every string inside v.
func expandValue(v any, vars map[string]any) any {
	switch t := v.(type) {
	case string:
		return automation.Expand(t, vars)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = expandValue(val, vars)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = expandValue(val, vars)
		}
		return out
	}
	return v
}
