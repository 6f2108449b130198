package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/scenario"
	"github.com/Readm/backend_flow_sim/visual"
)

var testBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, buffer int) *WebServer {
	t.Helper()
	server := NewWebServer(WebServerOptions{Addr: "127.0.0.1:0", CommandBuffer: buffer})
	t.Cleanup(func() { server.hub.stop() })
	return server
}

func idleFrame(seq uint64) *engine.Frame {
	f := engine.New(engine.Config{}).Snapshot(testBase)
	f.Seq = seq
	return f
}

func runningFrame(seq uint64) *engine.Frame {
	eng := engine.New(engine.Config{})
	if err := eng.Trigger(scenario.ReadHit, testBase); err != nil {
		panic(err)
	}
	f := eng.Snapshot(testBase.Add(100 * time.Millisecond))
	f.Seq = seq
	return f
}

func postControl(server *WebServer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/control", strings.NewReader(body))
	w := httptest.NewRecorder()
	server.handleControl(w, req)
	return w
}

func TestWebServer_FrameEndpoint(t *testing.T) {
	server := newTestServer(t, 4)

	req := httptest.NewRequest("GET", "/api/frame", nil)
	w := httptest.NewRecorder()
	server.handleFrame(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for empty frame, got %d", w.Code)
	}

	server.UpdateFrame(runningFrame(10))

	req = httptest.NewRequest("GET", "/api/frame", nil)
	w = httptest.NewRecorder()
	server.handleFrame(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var result engine.Frame
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Seq != 10 {
		t.Errorf("Expected seq 10, got %d", result.Seq)
	}
	if result.State != engine.StateRunning || result.Scenario != scenario.ReadHit {
		t.Errorf("Expected running READ_HIT, got %v %s", result.State, result.Scenario)
	}
	if len(result.Nodes) != 8 {
		t.Errorf("Expected 8 nodes, got %d", len(result.Nodes))
	}
	if len(result.Packets) != 1 {
		t.Errorf("Expected one packet in flight, got %d", len(result.Packets))
	}
	for _, s := range result.Scenarios {
		if s.Enabled {
			t.Errorf("Scenario %s enabled while running", s.ID)
		}
	}

	req = httptest.NewRequest("POST", "/api/frame", nil)
	w = httptest.NewRecorder()
	server.handleFrame(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestWebServer_ScenariosAndNodes(t *testing.T) {
	server := newTestServer(t, 4)

	w := httptest.NewRecorder()
	server.handleScenarios(w, httptest.NewRequest("GET", "/api/scenarios", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var list scenarioList
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to decode scenarios: %v", err)
	}
	if len(list.Scenarios) != 4 || list.Hash == "" {
		t.Fatalf("Unexpected scenario list: %+v", list)
	}
	wantSteps := map[scenario.ID]int{scenario.ReadHit: 4, scenario.ReadMiss: 7, scenario.Write: 6, scenario.AsyncTask: 5}
	for _, s := range list.Scenarios {
		if !s.Builtin {
			t.Errorf("%s should be builtin", s.ID)
		}
		if wantSteps[s.ID] != s.Steps {
			t.Errorf("%s: expected %d steps, got %d", s.ID, wantSteps[s.ID], s.Steps)
		}
	}

	w = httptest.NewRecorder()
	server.handleNodes(w, httptest.NewRequest("GET", "/api/nodes", nil))
	var topo topology
	if err := json.Unmarshal(w.Body.Bytes(), &topo); err != nil {
		t.Fatalf("Failed to decode nodes: %v", err)
	}
	if len(topo.Nodes) != 8 || len(topo.Connections) == 0 {
		t.Fatalf("Unexpected topology: %d nodes, %d connections", len(topo.Nodes), len(topo.Connections))
	}
}

func TestWebServer_StatsEndpoint(t *testing.T) {
	server := newTestServer(t, 4)
	server.stats.RecordRejected()
	server.queueCommand(visual.ControlCommand{Type: visual.CommandPause})

	w := httptest.NewRecorder()
	server.handleStats(w, httptest.NewRequest("GET", "/api/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if body["triggersRejected"] != float64(1) {
		t.Errorf("Expected 1 rejected trigger, got %v", body["triggersRejected"])
	}
	if body["queueDepth"] != float64(1) {
		t.Errorf("Expected queue depth 1, got %v", body["queueDepth"])
	}
	if s, _ := body["summary"].(string); !strings.Contains(s, "rejected triggers: 1") {
		t.Errorf("Summary missing rejected count: %q", s)
	}
}

func TestWebServer_ControlEndpoint(t *testing.T) {
	server := newTestServer(t, 4)
	server.UpdateFrame(idleFrame(1))

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"invalid json", `{`, http.StatusBadRequest, "Invalid request body"},
		{"unknown type", `{"type":"explode"}`, http.StatusBadRequest, "unknown command type"},
		{"missing scenario", `{"type":"trigger"}`, http.StatusBadRequest, "requires a scenario"},
		{"unknown scenario", `{"type":"trigger","scenario":"reed-hit"}`, http.StatusBadRequest, "did you mean READ_HIT?"},
		{"trigger", `{"type":"trigger","scenario":"read-miss"}`, http.StatusAccepted, "Command accepted"},
		{"reset", `{"type":"RESET"}`, http.StatusAccepted, "Command accepted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postControl(server, tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d (%s)", tt.status, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Fatalf("Expected body to contain %q, got %q", tt.want, w.Body.String())
			}
		})
	}

	cmd, ok := server.NextCommand()
	if !ok || cmd != visual.Trigger(scenario.ReadMiss) {
		t.Fatalf("Expected queued READ_MISS trigger, got %+v", cmd)
	}
	cmd, ok = server.NextCommand()
	if !ok || cmd.Type != visual.CommandReset {
		t.Fatalf("Expected queued reset, got %+v", cmd)
	}
	if _, ok := server.NextCommand(); ok {
		t.Fatalf("Rejected requests must not be queued")
	}

	req := httptest.NewRequest("GET", "/api/control", nil)
	w := httptest.NewRecorder()
	server.handleControl(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestWebServer_ControlBusy(t *testing.T) {
	server := newTestServer(t, 4)
	server.UpdateFrame(runningFrame(2))

	w := postControl(server, `{"type":"trigger","scenario":"WRITE"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 while running, got %d", w.Code)
	}
	if got := server.stats.Snapshot().TriggersRejected; got != 1 {
		t.Fatalf("Expected rejected trigger to be counted, got %d", got)
	}

	w = postControl(server, `{"type":"pause"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Pause must be accepted while running, got %d", w.Code)
	}
}

func TestWebServer_ControlQueueFull(t *testing.T) {
	server := newTestServer(t, 1)

	if w := postControl(server, `{"type":"pause"}`); w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	w := postControl(server, `{"type":"resume"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 when queue is full, got %d", w.Code)
	}
}

func TestWebServer_RouterServesAPIAndStatic(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>flow</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	server := NewWebServer(WebServerOptions{Addr: "127.0.0.1:0", StaticDir: dir})
	t.Cleanup(func() { server.hub.stop() })

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<h1>flow</h1>") {
		t.Fatalf("Static index not served: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/profiles", nil))
	if w.Code != http.StatusOK || w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("Unexpected profiles response: %d %v", w.Code, w.Header())
	}
	if !strings.Contains(w.Body.String(), "slow_motion") {
		t.Fatalf("Profiles missing slow_motion: %s", w.Body.String())
	}
}

func TestWebServer_WebSocket(t *testing.T) {
	server := newTestServer(t, 4)
	server.UpdateFrame(idleFrame(1))

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	readFrame := func() engine.Frame {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		var f engine.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		return f
	}

	if f := readFrame(); f.Seq != 1 {
		t.Fatalf("Expected latest frame on connect, got seq %d", f.Seq)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"trigger","scenario":"async_task"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmd, ok := server.WaitCommand(ctx)
	if !ok || cmd != visual.Trigger(scenario.AsyncTask) {
		t.Fatalf("Expected ASYNC_TASK trigger from socket, got %+v", cmd)
	}

	server.UpdateFrame(runningFrame(2))
	f := readFrame()
	// frame 1 may also have been broadcast after the client registered
	if f.Seq == 1 {
		f = readFrame()
	}
	if f.Seq != 2 || f.State != engine.StateRunning {
		t.Fatalf("Expected broadcast of running frame 2, got seq %d state %v", f.Seq, f.State)
	}
}

func TestWebVisualizer_StartsAndShutsDown(t *testing.T) {
	viz, err := NewWebVisualizer(WebServerOptions{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if viz.IsHeadless() {
		t.Fatalf("Web visualizer should not be headless")
	}
	viz.PublishFrame(idleFrame(3))

	resp, err := http.Get("http://" + viz.Server().Addr() + "/api/frame")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(buf.String(), `"seq":3`) {
		t.Fatalf("Unexpected frame response %d %s", resp.StatusCode, buf.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := viz.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
