package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic AV bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Core      CoreConfig      `yaml:"core"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Adapter   AdapterConfig   `yaml:"adapter"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CoreConfig describes the processor core the bridge fronts.
type CoreConfig struct {
	// Mode selects the core connection: "simulated" runs the built-in
	// in-memory core, "external" expects a live processor at Address.
	Mode string `yaml:"mode"`

	// Address is the processor core endpoint (host:port). Required when
	// Mode is "external"; reported in health messages either way.
	Address string `yaml:"address"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Auth     AuthConfig       `yaml:"auth"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AuthConfig contains bearer-token authentication settings. The bridge
// carries no user store; callers present HS256 tokens signed with the
// shared secret.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// AdapterConfig tunes the command dispatch pipeline. All durations are
// milliseconds; zero values fall back to the built-in policy defaults.
type AdapterConfig struct {
	Retry        RetryConfig        `yaml:"retry"`
	Breaker      BreakerConfig      `yaml:"breaker"`
	Cache        CacheConfig        `yaml:"cache"`
	ChangeGroups ChangeGroupsConfig `yaml:"change_groups"`
}

// RetryConfig tunes retries of core calls.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialDelayMS int     `yaml:"initial_delay_ms"`
	MaxDelayMS     int     `yaml:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
	Jitter         bool    `yaml:"jitter"`
}

// BreakerConfig tunes the circuit breaker guarding core calls.
type BreakerConfig struct {
	Threshold      int `yaml:"threshold"`
	ResetTimeoutMS int `yaml:"reset_timeout_ms"`
}

// CacheConfig tunes the idempotent-read response cache.
type CacheConfig struct {
	TTLMS           int   `yaml:"ttl_ms"`
	MaxBytes        int64 `yaml:"max_bytes"`
	MaxEntries      int   `yaml:"max_entries"`
	SweepIntervalMS int   `yaml:"sweep_interval_ms"`
}

// ChangeGroupsConfig bounds change group polling.
type ChangeGroupsConfig struct {
	MinAutoPollRateMS int `yaml:"min_auto_poll_rate_ms"`
	PollTimeoutMS     int `yaml:"poll_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Core connection modes.
const (
	CoreModeSimulated = "simulated"
	CoreModeExternal  = "external"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GLAV_SECTION_KEY
// For example: GLAV_CORE_ADDRESS, GLAV_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults. Adapter tuning
// defaults to zero so the dispatch pipeline's own policy defaults apply.
func defaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Mode:    CoreModeSimulated,
			Address: "127.0.0.1:1710",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "glav-bridge",
			},
			QoS:         1,
			TopicPrefix: "graylogic/av",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GLAV_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Core
	if v := os.Getenv("GLAV_CORE_MODE"); v != "" {
		cfg.Core.Mode = v
	}
	if v := os.Getenv("GLAV_CORE_ADDRESS"); v != "" {
		cfg.Core.Address = v
	}

	// API
	if v := os.Getenv("GLAV_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// MQTT
	if v := os.Getenv("GLAV_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GLAV_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GLAV_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("GLAV_MQTT_TOPIC_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}

	// Auth secret (IMPORTANT: always set via environment in production)
	if v := os.Getenv("GLAV_AUTH_SECRET"); v != "" {
		cfg.API.Auth.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Core validation
	switch c.Core.Mode {
	case CoreModeSimulated, CoreModeExternal:
	default:
		errs = append(errs, fmt.Sprintf("core.mode must be %q or %q", CoreModeSimulated, CoreModeExternal))
	}
	if c.Core.Mode == CoreModeExternal && c.Core.Address == "" {
		errs = append(errs, "core.address is required when core.mode is external")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Auth validation. The bridge fronts live show equipment; a forged
	// token is a forged fader move, so weak secrets are rejected outright.
	const minAuthSecretLength = 32
	if c.API.Auth.Enabled {
		if c.API.Auth.Secret == "" {
			errs = append(errs, "api.auth.secret is required when auth is enabled (set GLAV_AUTH_SECRET environment variable)")
		} else if len(c.API.Auth.Secret) < minAuthSecretLength {
			errs = append(errs, "api.auth.secret must be at least 32 characters for adequate security")
		}
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
		}
	}

	// Adapter validation (zero means use built-in default)
	if c.Adapter.Retry.MaxAttempts < 0 {
		errs = append(errs, "adapter.retry.max_attempts must not be negative")
	}
	if c.Adapter.Breaker.Threshold < 0 {
		errs = append(errs, "adapter.breaker.threshold must not be negative")
	}
	if c.Adapter.ChangeGroups.MinAutoPollRateMS < 0 {
		errs = append(errs, "adapter.change_groups.min_auto_poll_rate_ms must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetInitialDelay returns the first retry backoff as a Duration.
func (c RetryConfig) GetInitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMS) * time.Millisecond
}

// GetMaxDelay returns the backoff ceiling as a Duration.
func (c RetryConfig) GetMaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMS) * time.Millisecond
}

// GetResetTimeout returns the breaker open-state hold as a Duration.
func (c BreakerConfig) GetResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutMS) * time.Millisecond
}

// GetTTL returns the cache entry lifetime as a Duration.
func (c CacheConfig) GetTTL() time.Duration {
	return time.Duration(c.TTLMS) * time.Millisecond
}

// GetSweepInterval returns the cache sweep cadence as a Duration.
func (c CacheConfig) GetSweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMS) * time.Millisecond
}

// GetMinAutoPollRate returns the auto-poll rate floor as a Duration.
func (c ChangeGroupsConfig) GetMinAutoPollRate() time.Duration {
	return time.Duration(c.MinAutoPollRateMS) * time.Millisecond
}

// GetPollTimeout returns the per-poll deadline as a Duration.
func (c ChangeGroupsConfig) GetPollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMS) * time.Millisecond
}
