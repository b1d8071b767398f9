package adapter

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// HealthStatus represents the operational status of the adapter.
type HealthStatus string

const (
	// HealthHealthy indicates the adapter is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the adapter is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the adapter is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStopping indicates the adapter is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published periodically to report operational status.
// QoS 1, retained, so late subscribers see the last known state.
type HealthMessage struct {
	// Service is the reporting service identifier (e.g. "av").
	Service string `json:"service"`

	// Timestamp is when the health status was generated (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the adapter software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the adapter has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// CoreConnected reports the processor core connection state.
	CoreConnected bool `json:"core_connected"`

	// CoreAddress is the configured core address, when known.
	CoreAddress string `json:"core_address,omitempty"`

	// Stats carries the adapter's operational counters.
	Stats *Stats `json:"stats,omitempty"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// HealthPublisher is the interface for publishing health messages.
// This is typically implemented by an MQTT client.
type HealthPublisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Service is the service identifier for health messages.
	Service string

	// Version is the adapter software version.
	Version string

	// CoreAddress is the configured core address, included in messages.
	CoreAddress string

	// Topic is the MQTT topic health messages publish to.
	Topic string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher HealthPublisher

	// Adapter provides connection state and stats.
	Adapter *Adapter
}

// HealthReporter manages periodic health status reporting.
// It publishes health messages to MQTT at regular intervals.
type HealthReporter struct {
	cfg       HealthReporterConfig
	startTime time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewHealthReporter creates a health reporter.
//
// Parameters:
//   - cfg: Configuration; Publisher and Adapter are expected to be set
//   - logger: Optional logger
//
// Returns:
//   - *HealthReporter: Ready to start (call Start to begin reporting)
func NewHealthReporter(cfg HealthReporterConfig, logger Logger) *HealthReporter {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &HealthReporter{
		cfg:       cfg,
		startTime: time.Now(),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Start begins periodic health reporting.
// Must be called after creation. Call Stop to shut down.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop gracefully stops health reporting.
// Publishes a final "stopping" status before returning.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		// Best-effort final publish; nothing to do if it fails.
		_ = h.publishStatus(HealthStopping, "shutting down")
	})
}

// PublishNow publishes the current health status immediately.
// Useful for forcing an update after a significant event.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

// LWTPayload returns the Last Will and Testament message payload.
// This should be set as the MQTT will message during connection.
func (h *HealthReporter) LWTPayload() ([]byte, error) {
	msg := HealthMessage{
		Service:   h.cfg.Service,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Version:   h.cfg.Version,
		Reason:    "unexpected_disconnect",
	}
	return json.Marshal(msg)
}

// LWTTopic returns the topic for the Last Will and Testament.
func (h *HealthReporter) LWTTopic() string {
	return h.cfg.Topic
}

// reportLoop runs the periodic health reporting.
func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logger.Error("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logger.Error("failed to publish health", "error", err)
			}
		}
	}
}

// determineStatus evaluates the current adapter status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.cfg.Publisher == nil || !h.cfg.Publisher.IsConnected() {
		return HealthDegraded, "mqtt disconnected"
	}
	if h.cfg.Adapter == nil || !h.cfg.Adapter.Connected() {
		return HealthDegraded, "core disconnected"
	}
	return HealthHealthy, ""
}

// publishStatus publishes a health status message.
func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.cfg.Publisher == nil {
		return nil
	}

	msg := HealthMessage{
		Service:       h.cfg.Service,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       h.cfg.Version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		CoreAddress:   h.cfg.CoreAddress,
		Reason:        reason,
	}
	if h.cfg.Adapter != nil {
		stats := h.cfg.Adapter.Stats()
		msg.Stats = &stats
		msg.CoreConnected = h.cfg.Adapter.Connected()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.cfg.Publisher.Publish(h.cfg.Topic, payload, 1, true)
}
