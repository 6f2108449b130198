package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/plugins/runmetrics"
	"github.com/Readm/backend_flow_sim/scenario"
	"github.com/Readm/backend_flow_sim/visual"
)

// WebServerOptions configure a WebServer.
type WebServerOptions struct {
	Addr          string
	StaticDir     string
	Table         *scenario.Table
	Stats         *runmetrics.Collector
	CommandBuffer int
}

// WebServer provides HTTP endpoints for visualization and control.
type WebServer struct {
	mu          sync.RWMutex
	latestFrame *engine.Frame

	table     *scenario.Table
	stats     *runmetrics.Collector
	commands  visual.CommandQueue
	hub       *wsHub
	staticDir string

	server   *http.Server
	listener net.Listener
}

// NewWebServer creates a new web server instance. It does not listen until
// Start is called.
func NewWebServer(opts WebServerOptions) *WebServer {
	if opts.Table == nil {
		opts.Table = scenario.Builtin()
	}
	if opts.Stats == nil {
		opts.Stats = runmetrics.NewCollector()
	}
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = DefaultCommandBuffer
	}
	if opts.StaticDir == "" {
		opts.StaticDir = DefaultStaticDir
	}

	ws := &WebServer{
		table:     opts.Table,
		stats:     opts.Stats,
		commands:  visual.NewChannelCommandQueue(opts.CommandBuffer),
		hub:       newHub(),
		staticDir: opts.StaticDir,
	}
	ws.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(ws),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws
}

func (ws *WebServer) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/api/frame", ws.handleFrame)
	mux.HandleFunc("/api/scenarios", ws.handleScenarios)
	mux.HandleFunc("/api/nodes", ws.handleNodes)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/profiles", ws.handleProfiles)
	mux.HandleFunc("/api/control", ws.handleControl)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.hub.handle(ws, w, r)
	})
	mux.Handle("/", http.FileServer(http.Dir(ws.staticDir)))
}

// Handler returns the HTTP handler serving every endpoint.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Start binds the listen address and serves in a goroutine. Bind errors are
// returned synchronously.
func (ws *WebServer) Start() error {
	ln, err := net.Listen("tcp", ws.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", ws.server.Addr, err)
	}
	ws.mu.Lock()
	ws.listener = ln
	ws.mu.Unlock()

	go func() {
		if err := ws.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			GetLogger().Errorf("Web server stopped: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (ws *WebServer) Addr() string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	if ws.listener != nil {
		return ws.listener.Addr().String()
	}
	return ws.server.Addr
}

// Shutdown stops the HTTP server and disconnects WebSocket clients.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.hub.stop()
	return ws.server.Shutdown(ctx)
}

// UpdateFrame stores the latest frame and streams it to WebSocket clients.
func (ws *WebServer) UpdateFrame(frame *engine.Frame) {
	if frame == nil {
		return
	}
	ws.mu.Lock()
	ws.latestFrame = frame
	ws.mu.Unlock()
	metrics.RecordFrames(1)
	ws.hub.broadcastFrame(frame)
}

// LatestFrame returns the most recent frame, or nil before the first one.
func (ws *WebServer) LatestFrame() *engine.Frame {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.latestFrame
}

// NextCommand returns the next control command if available, non-blocking.
func (ws *WebServer) NextCommand() (visual.ControlCommand, bool) {
	return ws.commands.TryDequeue()
}

// WaitCommand blocks until a command arrives or ctx is done.
func (ws *WebServer) WaitCommand(ctx context.Context) (visual.ControlCommand, bool) {
	return ws.commands.Next(ctx)
}

func (ws *WebServer) queueCommand(cmd visual.ControlCommand) bool {
	if !ws.commands.Enqueue(cmd) {
		metrics.RecordQueueFull()
		return false
	}
	metrics.RecordCommand()
	return true
}
