package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/adapter"
	"github.com/nerrad567/gray-logic-av/internal/changegroup"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-av/internal/processor"
	"github.com/nerrad567/gray-logic-av/internal/reliability"
)

// testLogger returns a quiet logger for test servers.
func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

// testServer creates a Server over an adapter backed by the in-memory sim.
func testServer(t *testing.T) (*Server, *processor.Sim) {
	t.Helper()
	return testServerWithConfig(t, config.APIConfig{
		Host: "127.0.0.1",
		Port: 8090,
		Timeouts: config.APITimeoutConfig{
			Read:  5,
			Write: 5,
			Idle:  5,
		},
	})
}

// testServerWithConfig creates a Server with a caller-supplied API config.
func testServerWithConfig(t *testing.T, apiCfg config.APIConfig) (*Server, *processor.Sim) {
	t.Helper()

	sim := processor.NewSim()
	a, err := adapter.New(adapter.Options{
		Client: sim,
		Cache:  reliability.CacheConfig{SweepInterval: -1},
	})
	if err != nil {
		t.Fatalf("adapter.New: %v", err)
	}
	t.Cleanup(a.Close)

	log := testLogger()

	srv, err := New(Deps{
		Config: apiCfg,
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:  log,
		Adapter: a,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests that bypass Start()
	srv.hub = NewHub(srv.wsCfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return srv, sim
}

// postCommand POSTs a raw body to the command endpoint.
func postCommand(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/command", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a recorded JSON response body.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v (body: %s)", err, w.Body.String())
	}
	return resp
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	ct := w.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-ID")
	if requestID == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/command", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	srv, _ := testServerWithConfig(t, config.APIConfig{
		Host: "127.0.0.1",
		Port: 8090,
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"https://ops.venue.example"},
		},
	})
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty for disallowed origin", got)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Status Endpoint Tests ─────────────────────────────────────────

func TestStatus(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decodeBody(t, w)

	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}

	core, ok := resp["core"].(map[string]any)
	if !ok {
		t.Fatalf("core is %T, want object", resp["core"])
	}
	if core["Platform"] != "GL AV Simulator" {
		t.Errorf("core.Platform = %v, want GL AV Simulator", core["Platform"])
	}
	if core["Connected"] != true {
		t.Errorf("core.Connected = %v, want true", core["Connected"])
	}
	if core["IsEmulator"] != true {
		t.Errorf("core.IsEmulator = %v, want true", core["IsEmulator"])
	}

	stats, ok := resp["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats is %T, want object", resp["stats"])
	}
	if _, ok := stats["breaker"]; !ok {
		t.Error("stats missing breaker snapshot")
	}
	if got := stats["change_groups"]; got != float64(0) {
		t.Errorf("stats.change_groups = %v, want 0", got)
	}
}

func TestStatus_DisconnectedCore(t *testing.T) {
	srv, sim := testServer(t)
	router := srv.buildRouter()

	sim.SetConnected(false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	core := resp["core"].(map[string]any)

	if core["Connected"] != false {
		t.Errorf("core.Connected = %v, want false", core["Connected"])
	}
	if _, ok := core["Platform"]; ok {
		t.Error("disconnected core should omit platform fields")
	}
}

// ─── Command Endpoint Tests ────────────────────────────────────────

func TestCommand_ControlSet(t *testing.T) {
	srv, sim := testServer(t)
	router := srv.buildRouter()

	w := postCommand(t, router, `{"method":"Control.Set","params":{"Name":"HouseGain.gain","Value":-4}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decodeBody(t, w)
	results, ok := resp["result"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("result = %v, want one entry", resp["result"])
	}

	entry := results[0].(map[string]any)
	if entry["Result"] != "Success" {
		t.Errorf("entry.Result = %v, want Success (error: %v)", entry["Result"], entry["Error"])
	}

	value, err := sim.ControlValue(context.Background(), "HouseGain", "gain")
	if err != nil {
		t.Fatalf("ControlValue: %v", err)
	}
	if value.Value != -4.0 {
		t.Errorf("gain after set = %v, want -4", value.Value)
	}
}

func TestCommand_PerEntryValidationFailure(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := postCommand(t, router, `{"method":"Control.Set","params":{"Name":"HouseGain.gain","Value":99}}`)

	// Write failures are reported per entry, not as an HTTP error.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	results := resp["result"].([]any)
	entry := results[0].(map[string]any)

	if entry["Result"] != "Error" {
		t.Errorf("entry.Result = %v, want Error", entry["Result"])
	}
	errMsg, _ := entry["Error"].(string)
	if !strings.Contains(errMsg, "above maximum") {
		t.Errorf("entry.Error = %q, want range violation", errMsg)
	}
}

func TestCommand_StatusGet(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := postCommand(t, router, `{"method":"Status.Get"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decodeBody(t, w)
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("result is %T, want object", resp["result"])
	}
	if result["Platform"] != "GL AV Simulator" {
		t.Errorf("Platform = %v, want GL AV Simulator", result["Platform"])
	}
}

func TestCommand_UnknownMethod(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := postCommand(t, router, `{"method":"Mixer.Explode"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["code"] != "invalid_params" {
		t.Errorf("code = %v, want invalid_params", resp["code"])
	}
	if resp["status"] != float64(http.StatusBadRequest) {
		t.Errorf("status field = %v, want 400", resp["status"])
	}
}

func TestCommand_MethodRequired(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := postCommand(t, router, `{"params":{}}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	resp := decodeBody(t, w)
	if resp["code"] != ErrCodeBadRequest {
		t.Errorf("code = %v, want %v", resp["code"], ErrCodeBadRequest)
	}
}

func TestCommand_InvalidJSON(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := postCommand(t, router, `{"method": `)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCommand_UnknownComponent(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := postCommand(t, router, `{"method":"Component.Get","params":{"Name":"Ghost","Controls":[{"Name":"gain"}]}}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusNotFound, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["code"] != "not_found" {
		t.Errorf("code = %v, want not_found", resp["code"])
	}
}

// ─── Change Group Endpoint Tests ───────────────────────────────────

func TestChangeGroups_EmptyThenPopulated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/changegroups", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decodeBody(t, w)
	if resp["count"] != float64(0) {
		t.Errorf("count = %v, want 0", resp["count"])
	}

	cw := postCommand(t, router, `{"method":"ChangeGroup.AddControl","params":{"Id":"ui","Controls":["HouseGain.gain"]}}`)
	if cw.Code != http.StatusOK {
		t.Fatalf("AddControl status = %d, want %d; body: %s", cw.Code, http.StatusOK, cw.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/changegroups", nil))

	resp = decodeBody(t, w)
	if resp["count"] != float64(1) {
		t.Fatalf("count after add = %v, want 1", resp["count"])
	}

	groups := resp["change_groups"].([]any)
	group := groups[0].(map[string]any)
	if group["id"] != "ui" {
		t.Errorf("group id = %v, want ui", group["id"])
	}
	controls := group["controls"].([]any)
	if len(controls) != 1 || controls[0] != "HouseGain.gain" {
		t.Errorf("group controls = %v, want [HouseGain.gain]", controls)
	}
}

// ─── System Endpoint Tests ─────────────────────────────────────────

func TestClearCaches(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	// Prime the cache with a read first.
	pw := postCommand(t, router, `{"method":"Component.GetComponents"}`)
	if pw.Code != http.StatusOK {
		t.Fatalf("prime status = %d, want %d", pw.Code, http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/system/clear-caches", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
}

// ─── Server Lifecycle Tests ────────────────────────────────────────

func TestNew_RequiresLogger(t *testing.T) {
	sim := processor.NewSim()
	a, err := adapter.New(adapter.Options{
		Client: sim,
		Cache:  reliability.CacheConfig{SweepInterval: -1},
	})
	if err != nil {
		t.Fatalf("adapter.New: %v", err)
	}
	defer a.Close()

	_, err = New(Deps{Adapter: a})
	if err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestNew_RequiresAdapter(t *testing.T) {
	_, err := New(Deps{Logger: testLogger()})
	if err == nil {
		t.Error("New() without adapter should fail")
	}
}

func TestClose_BeforeStart(t *testing.T) {
	srv, _ := testServer(t)

	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start() = %v, want nil", err)
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Create a mock client
	client := &WSClient{
		hub:           hub,
		id:            "test-client",
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{changegroup.EventName: {}},
	}
	hub.Register(client)

	// Broadcast
	hub.Broadcast(changegroup.EventName, changegroup.ChangeEvent{
		GroupID:        "mixer-ui",
		SequenceNumber: 4,
	})

	// Should receive the message
	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != changegroup.EventName {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, changegroup.EventName)
		}
		payload := wsMsg.Payload.(map[string]any)
		if payload["groupId"] != "mixer-ui" {
			t.Errorf("payload groupId = %v, want mixer-ui", payload["groupId"])
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Client subscribed to a different channel
	client := &WSClient{
		hub:           hub,
		id:            "test-client",
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{"health": {}},
	}
	hub.Register(client)

	hub.Broadcast(changegroup.EventName, changegroup.ChangeEvent{GroupID: "ui"})

	// Should NOT receive the message
	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
		// OK, no message received
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := &WSClient{
		hub:           hub,
		id:            "test-client",
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}
