package events

import (
	"encoding/json"

	"github.com/nerrad567/gray-logic-av/internal/changegroup"
)

// MQTTClient is the broker surface the event layer needs.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// MQTTSink publishes change events to per-group MQTT topics, one message per
// poll that found changes. Events are dropped while the broker is down;
// subscribers re-baseline from the next poll rather than replaying a backlog.
//
// Thread Safety: safe for concurrent use.
type MQTTSink struct {
	client MQTTClient
	topics Topics
	qos    byte
	logger Logger
}

// Ensure MQTTSink implements changegroup.Sink.
var _ changegroup.Sink = (*MQTTSink)(nil)

// NewMQTTSink creates a sink publishing to client under the given topic
// scheme.
func NewMQTTSink(client MQTTClient, topics Topics, qos byte, logger Logger) *MQTTSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTSink{client: client, topics: topics, qos: qos, logger: logger}
}

// EmitChanges publishes event to the group's change topic. Not retained:
// change events are deltas, and a stale retained delta would mislead late
// subscribers.
func (s *MQTTSink) EmitChanges(event changegroup.ChangeEvent) {
	if !s.client.IsConnected() {
		s.logger.Debug("broker disconnected, dropping change event",
			"group", event.GroupID, "sequence", event.SequenceNumber)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal change event",
			"group", event.GroupID, "error", err)
		return
	}

	topic := s.topics.ChangeGroup(event.GroupID)
	if err := s.client.Publish(topic, payload, s.qos, false); err != nil {
		s.logger.Warn("failed to publish change event",
			"topic", topic, "error", err)
	}
}
