package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a temp config file and points GLAV_CONFIG at it.
func writeConfig(t *testing.T, content string) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "glav-test.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GLAV_CONFIG", configPath)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GLAV_CONFIG", "/nonexistent/path/glav.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ValidationFailure verifies run fails when the config is rejected.
func TestRun_ValidationFailure(t *testing.T) {
	writeConfig(t, `
core:
  mode: external
  address: ""

logging:
  level: error
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail for external mode without an address")
	}
}

// TestRun_ExternalModeUnsupported verifies external mode refuses to start.
func TestRun_ExternalModeUnsupported(t *testing.T) {
	writeConfig(t, `
core:
  mode: external
  address: "10.0.40.8:1710"

logging:
  level: error
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail for external core mode")
	}
	if !strings.Contains(err.Error(), "no transport") {
		t.Errorf("error = %v, want transport availability message", err)
	}
}

// TestRun_SimulatedStartupAndShutdown exercises the full lifecycle against
// the simulated core with MQTT disabled.
func TestRun_SimulatedStartupAndShutdown(t *testing.T) {
	writeConfig(t, `
core:
  mode: simulated

api:
  host: "127.0.0.1"
  port: 18090
  timeouts:
    read: 5
    write: 5
    idle: 5

mqtt:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(500 * time.Millisecond)
		cancel()
	}()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GLAV_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/glav.yaml"
	t.Setenv("GLAV_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
