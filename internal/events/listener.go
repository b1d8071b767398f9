package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/adapter"
)

// defaultCommandTimeout bounds a single dispatched command.
const defaultCommandTimeout = 10 * time.Second

// Dispatcher executes one command against the processor core.
// This is implemented by *adapter.Adapter.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string, params any) (any, error)
}

// CommandRequest is the inbound command payload.
// Topic: {prefix}/command/request
type CommandRequest struct {
	// ID correlates the response with this request. Optional; responses to
	// id-less requests carry no id.
	ID string `json:"id,omitempty"`

	// Method is the command name, including aliases (e.g. "Control.Set").
	Method string `json:"method"`

	// Params carries the command parameters in any accepted shape.
	Params any `json:"params,omitempty"`
}

// CommandResponse is the reply payload.
// Topic: {prefix}/command/response
type CommandResponse struct {
	// ID is the id from the originating request.
	ID string `json:"id,omitempty"`

	// Timestamp is when the response was generated (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Success indicates whether the command succeeded.
	Success bool `json:"success"`

	// Result contains the command result (if successful).
	Result any `json:"result,omitempty"`

	// Error contains failure details (if failed).
	Error *CommandFault `json:"error,omitempty"`
}

// CommandFault carries a failed command's classification and description.
type CommandFault struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ListenerStats counts processed commands.
type ListenerStats struct {
	Processed uint64 `json:"processed"`
	Faults    uint64 `json:"faults"`
}

// ListenerConfig holds command listener configuration.
type ListenerConfig struct {
	// Topics is the topic scheme to subscribe and respond on.
	Topics Topics

	// QoS for the subscription and responses. Default: 1.
	QoS byte

	// Timeout bounds each dispatched command. Default: 10 seconds.
	Timeout time.Duration

	// Dispatcher executes commands. Required.
	Dispatcher Dispatcher

	// Client is the broker connection. Required.
	Client MQTTClient

	// Logger for listener activity. Optional.
	Logger Logger
}

// CommandListener serves the MQTT command channel: it subscribes to the
// request topic, dispatches each payload and publishes the outcome on the
// response topic. Malformed payloads get an error response rather than
// silence, so callers can always correlate.
//
// Thread Safety: safe for concurrent use; handlers run on broker goroutines.
type CommandListener struct {
	cfg    ListenerConfig
	logger Logger

	// base is the lifecycle context commands derive their timeout from.
	base context.Context

	processed atomic.Uint64
	faults    atomic.Uint64
}

// NewCommandListener creates a listener. Call Start to begin serving.
func NewCommandListener(cfg ListenerConfig) (*CommandListener, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("events: dispatcher is required")
	}
	if cfg.Client == nil {
		return nil, errors.New("events: mqtt client is required")
	}
	if cfg.QoS == 0 {
		cfg.QoS = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCommandTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &CommandListener{
		cfg:    cfg,
		logger: logger,
		base:   context.Background(),
	}, nil
}

// Start subscribes to the request topic. Commands dispatched after ctx is
// cancelled fail with the context error.
func (l *CommandListener) Start(ctx context.Context) error {
	l.base = ctx
	topic := l.cfg.Topics.CommandRequest()
	if err := l.cfg.Client.Subscribe(topic, l.cfg.QoS, l.handleMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	l.logger.Info("command listener started", "topic", topic)
	return nil
}

// Close unsubscribes from the request topic.
func (l *CommandListener) Close() error {
	return l.cfg.Client.Unsubscribe(l.cfg.Topics.CommandRequest())
}

// Stats returns processing counters.
func (l *CommandListener) Stats() ListenerStats {
	return ListenerStats{
		Processed: l.processed.Load(),
		Faults:    l.faults.Load(),
	}
}

// handleMessage processes one inbound command payload.
func (l *CommandListener) handleMessage(_ string, payload []byte) {
	var req CommandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		l.logger.Warn("malformed command payload", "error", err)
		l.respondFault("", &CommandFault{
			Code:    adapter.CodeInvalidParams,
			Message: "malformed command payload",
		})
		return
	}
	if req.Method == "" {
		l.respondFault(req.ID, &CommandFault{
			Code:    adapter.CodeInvalidParams,
			Message: "method required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(l.base, l.cfg.Timeout)
	defer cancel()

	result, err := l.cfg.Dispatcher.Dispatch(ctx, req.Method, req.Params)
	if err != nil {
		l.respondFault(req.ID, faultFrom(err))
		return
	}

	l.processed.Add(1)
	l.respond(CommandResponse{
		ID:        req.ID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Result:    result,
	})
}

// respondFault publishes an error response.
func (l *CommandListener) respondFault(id string, fault *CommandFault) {
	l.faults.Add(1)
	l.respond(CommandResponse{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Success:   false,
		Error:     fault,
	})
}

// respond publishes one response payload.
func (l *CommandListener) respond(resp CommandResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		l.logger.Error("failed to marshal command response", "error", err)
		return
	}
	topic := l.cfg.Topics.CommandResponse()
	if err := l.cfg.Client.Publish(topic, payload, l.cfg.QoS, false); err != nil {
		l.logger.Warn("failed to publish command response",
			"topic", topic, "error", err)
	}
}

// faultFrom maps a dispatch error onto the wire fault shape.
func faultFrom(err error) *CommandFault {
	var ce *adapter.CommandError
	if errors.As(err, &ce) {
		return &CommandFault{Code: ce.Code, Message: ce.Message}
	}
	return &CommandFault{Code: adapter.CodeInternal, Message: err.Error()}
}
