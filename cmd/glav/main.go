// Gray Logic AV - Processor Core Bridge
//
// This is the main entry point for the Gray Logic AV bridge. The bridge
// fronts one audio/video processor core and exposes its named controls over
// HTTP, WebSocket and MQTT:
//   - Command dispatch with aliases and parameter normalisation
//   - Change groups with server-side polling and event fan-out
//   - Retry, circuit breaking and response caching around the core link
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nerrad567/gray-logic-av/internal/adapter"
	"github.com/nerrad567/gray-logic-av/internal/api"
	"github.com/nerrad567/gray-logic-av/internal/events"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-av/internal/processor"
	"github.com/nerrad567/gray-logic-av/internal/reliability"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/glav.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic AV bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Select the processor core client
	var coreClient processor.Client
	switch cfg.Core.Mode {
	case config.CoreModeSimulated:
		coreClient = processor.NewSim()
		log.Info("using simulated processor core")
	case config.CoreModeExternal:
		// The wire transport to a real core ships separately; until it does,
		// external mode cannot start.
		return fmt.Errorf("core mode %q: no transport available in this build (set core.mode to %q)",
			cfg.Core.Mode, config.CoreModeSimulated)
	default:
		return fmt.Errorf("unknown core mode %q", cfg.Core.Mode)
	}

	// Fan change events out to every sink registered below
	fanout := events.NewFanout(log)

	// Create the adapter over the core client
	av, err := adapter.New(adapter.Options{
		Client:          coreClient,
		Sink:            fanout,
		Logger:          log,
		Retry:           reliabilityRetry(cfg.Adapter.Retry),
		Breaker:         reliabilityBreaker(cfg.Adapter.Breaker),
		Cache:           reliabilityCache(cfg.Adapter.Cache),
		MinAutoPollRate: cfg.Adapter.ChangeGroups.GetMinAutoPollRate(),
		PollTimeout:     cfg.Adapter.ChangeGroups.GetPollTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating adapter: %w", err)
	}
	defer func() {
		log.Info("closing adapter")
		av.Close()
	}()
	log.Info("adapter created", "core_mode", cfg.Core.Mode)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		bus, err := startMQTT(ctx, cfg, av, fanout, log)
		if err != nil {
			return fmt.Errorf("starting MQTT: %w", err)
		}
		mqttClient = bus.client
		defer func() {
			// Final "stopping" status goes out while the connection is
			// still up, then the listener and the client itself.
			log.Info("disconnecting from MQTT")
			bus.reporter.Stop()
			if closeErr := bus.listener.Close(); closeErr != nil {
				log.Warn("error closing command listener", "error", closeErr)
			}
			if closeErr := bus.client.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// WebSocket hub, created here so change events reach it via the fan-out
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	fanout.Add(events.NewHubSink(hub))

	// Start the API server
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Adapter: av,
		Hub:     hub,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"tls", cfg.API.TLS.Enabled,
		"auth", cfg.API.Auth.Enabled,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, server, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred closes run in reverse order:
	// 1. API server
	// 2. Health reporter final publish, command listener, MQTT (if enabled)
	// 3. Adapter

	log.Info("Gray Logic AV bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GLAV_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GLAV_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// mqttBus bundles the broker-facing components so run() can tear them down
// in order: reporter first (final status), then listener, then the client.
type mqttBus struct {
	client   *mqtt.Client
	listener *events.CommandListener
	reporter *adapter.HealthReporter
}

// startMQTT connects to the broker and wires the bus-facing components:
// the health reporter (whose offline payload becomes the connection's Last
// Will), the change event sink and the command listener.
//
// Parameters:
//   - ctx: Context for startup/cancellation
//   - cfg: Application configuration
//   - av: Adapter dispatching inbound commands
//   - fanout: Change event fan-out to register the MQTT sink on
//   - log: Logger instance
//
// Returns:
//   - *mqttBus: Running components (torn down by the caller's defer chain)
//   - error: If the broker connection or any subscription fails
func startMQTT(ctx context.Context, cfg *config.Config, av *adapter.Adapter, fanout *events.Fanout, log *logging.Logger) (*mqttBus, error) {
	topics := events.Topics{Prefix: cfg.MQTT.TopicPrefix}

	// The reporter must exist before Connect: its offline payload registers
	// with the broker as the Last Will. The publisher is bound afterwards.
	publisher := &healthPublisher{}
	reporter := adapter.NewHealthReporter(adapter.HealthReporterConfig{
		Service:     "av",
		Version:     version,
		CoreAddress: cfg.Core.Address,
		Topic:       topics.Health(),
		Publisher:   publisher,
		Adapter:     av,
	}, log)

	lwtPayload, err := reporter.LWTPayload()
	if err != nil {
		return nil, fmt.Errorf("building LWT payload: %w", err)
	}

	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{
		Topic:    reporter.LWTTopic(),
		Payload:  lwtPayload,
		QoS:      1,
		Retained: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}
	publisher.bind(client)
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"topic_prefix", topics.Prefix,
	)

	// Republish retained health after every reconnect so a stale Last Will
	// delivered while we were gone gets overwritten.
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		if pubErr := reporter.PublishNow(); pubErr != nil {
			log.Warn("failed to republish health after reconnect", "error", pubErr)
		}
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	bus := &eventsBusAdapter{client: client}

	// Change events out to per-group topics
	fanout.Add(events.NewMQTTSink(bus, topics, byte(cfg.MQTT.QoS), log))

	// Commands in from the request topic
	listener, err := events.NewCommandListener(events.ListenerConfig{
		Topics:     topics,
		QoS:        byte(cfg.MQTT.QoS),
		Dispatcher: av,
		Client:     bus,
		Logger:     log,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("creating command listener: %w", err)
	}
	if err := listener.Start(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("starting command listener: %w", err)
	}

	reporter.Start(ctx)

	return &mqttBus{client: client, listener: listener, reporter: reporter}, nil
}

// healthCheck verifies all running components are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - server: API server to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, server *api.Server, mqttClient *mqtt.Client) error {
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// A disconnected core is not a startup failure: the bridge serves its
	// status and health surfaces while the core is away.

	return nil
}

// reliabilityRetry maps file config onto the retry policy.
func reliabilityRetry(cfg config.RetryConfig) reliability.RetryConfig {
	return reliability.RetryConfig{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.GetInitialDelay(),
		MaxDelay:     cfg.GetMaxDelay(),
		Multiplier:   cfg.Multiplier,
		Jitter:       cfg.Jitter,
	}
}

// reliabilityBreaker maps file config onto the breaker policy.
func reliabilityBreaker(cfg config.BreakerConfig) reliability.BreakerConfig {
	return reliability.BreakerConfig{
		Threshold:    cfg.Threshold,
		ResetTimeout: cfg.GetResetTimeout(),
	}
}

// reliabilityCache maps file config onto the cache policy.
func reliabilityCache(cfg config.CacheConfig) reliability.CacheConfig {
	return reliability.CacheConfig{
		TTL:           cfg.GetTTL(),
		MaxBytes:      cfg.MaxBytes,
		MaxEntries:    cfg.MaxEntries,
		SweepInterval: cfg.GetSweepInterval(),
	}
}

// healthPublisher defers the MQTT client binding: the health reporter must
// exist before Connect (its offline payload registers as the Last Will), but
// the client only exists after Connect succeeds.
type healthPublisher struct {
	mu     sync.RWMutex
	client *mqtt.Client
}

// bind attaches the connected client. Called once, before reporting starts.
func (p *healthPublisher) bind(client *mqtt.Client) {
	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
}

// Publish implements adapter.HealthPublisher.
func (p *healthPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	if client == nil {
		return mqtt.ErrNotConnected
	}
	return client.Publish(topic, payload, qos, retained)
}

// IsConnected implements adapter.HealthPublisher.
func (p *healthPublisher) IsConnected() bool {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	return client != nil && client.IsConnected()
}

// eventsBusAdapter adapts the infrastructure MQTT client to the event layer's
// client interface. The difference is the Subscribe handler signature:
//   - Infrastructure mqtt: func(topic string, payload []byte) error
//   - Event layer expects: func(topic string, payload []byte)
type eventsBusAdapter struct {
	client *mqtt.Client
}

// Publish implements events.MQTTClient.
func (a *eventsBusAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements events.MQTTClient.
func (a *eventsBusAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (event handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements events.MQTTClient.
func (a *eventsBusAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

// IsConnected implements events.MQTTClient.
func (a *eventsBusAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
