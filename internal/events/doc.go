// Package events routes change group events and MQTT commands between the
// adapter and the outside world.
//
// This package manages:
//   - Fan-out of change events to multiple sinks with per-sink isolation
//   - Publication of change events to per-group MQTT topics
//   - Bridging of change events onto the WebSocket broadcast hub
//   - The MQTT request/response command channel
//   - The AV bridge's MQTT topic scheme
//
// # Architecture
//
// The change group engine emits through a single Sink. Fanout implements that
// Sink and forwards to the concrete outputs, so the engine stays ignorant of
// how many consumers exist:
//
//	changegroup.Engine ──► events.Fanout ──┬─► events.MQTTSink  ──► broker
//	                                       └─► events.HubSink   ──► WebSocket hub
//
// The command listener runs the opposite direction: broker messages on the
// request topic are dispatched through the adapter and answered on the
// response topic.
//
//	broker ──► events.CommandListener ──► adapter.Dispatch ──► broker
//
// # Thread Safety
//
// All types are safe for concurrent use. Sink delivery is synchronous on the
// poller's goroutine; sinks must not block for extended periods.
package events
