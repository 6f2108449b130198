package main

import (
	"context"

	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/visual"
)

// WebVisualizer bridges the simulator with the web server.
type WebVisualizer struct {
	headless bool
	server   *WebServer
}

// NewWebVisualizer creates a web visualizer and starts its server.
func NewWebVisualizer(opts WebServerOptions) (*WebVisualizer, error) {
	server := NewWebServer(opts)
	if err := server.Start(); err != nil {
		return nil, err
	}
	GetLogger().Infof("Web server started at http://%s", server.Addr())
	return &WebVisualizer{server: server}, nil
}

// Server returns the underlying web server.
func (w *WebVisualizer) Server() *WebServer {
	return w.server
}

// SetHeadless switches headless state.
func (w *WebVisualizer) SetHeadless(headless bool) {
	w.headless = headless
}

// IsHeadless returns whether visualizer runs without UI.
func (w *WebVisualizer) IsHeadless() bool {
	return w.headless
}

// PublishFrame updates the server with the latest frame.
func (w *WebVisualizer) PublishFrame(frame *engine.Frame) {
	if w.server != nil {
		w.server.UpdateFrame(frame)
	}
}

// NextCommand returns the next control command if available, non-blocking.
func (w *WebVisualizer) NextCommand() (visual.ControlCommand, bool) {
	if w.server == nil {
		return visual.ControlCommand{Type: visual.CommandNone}, false
	}
	return w.server.NextCommand()
}

// WaitCommand blocks until the server queues a command or ctx is done.
func (w *WebVisualizer) WaitCommand(ctx context.Context) (visual.ControlCommand, bool) {
	if w.server == nil {
		<-ctx.Done()
		return visual.ControlCommand{Type: visual.CommandNone}, false
	}
	return w.server.WaitCommand(ctx)
}

// Shutdown stops the web server.
func (w *WebVisualizer) Shutdown(ctx context.Context) error {
	if w.server == nil {
		return nil
	}
	return w.server.Shutdown(ctx)
}
