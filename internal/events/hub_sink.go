package events

import "github.com/nerrad567/gray-logic-av/internal/changegroup"

// Broadcaster pushes typed events to connected WebSocket clients.
// This is implemented by the API server's connection hub.
type Broadcaster interface {
	Broadcast(eventType string, data any)
}

// HubSink bridges change events onto a WebSocket broadcast hub.
type HubSink struct {
	hub Broadcaster
}

// Ensure HubSink implements changegroup.Sink.
var _ changegroup.Sink = (*HubSink)(nil)

// NewHubSink creates a sink broadcasting through hub.
func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

// EmitChanges broadcasts event under the change event name.
func (s *HubSink) EmitChanges(event changegroup.ChangeEvent) {
	s.hub.Broadcast(changegroup.EventName, event)
}
