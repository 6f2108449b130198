package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Readm/backend_flow_sim/visual"
)

const maxControlBody = 64 << 10

type controlRequest struct {
	Type     string `json:"type"`
	Scenario string `json:"scenario,omitempty"`
}

// controlError carries the HTTP status a rejected request maps to.
type controlError struct {
	status int
	msg    string
}

func (e *controlError) Error() string {
	return e.msg
}

// processControlRequest validates a request from HTTP or WebSocket and
// builds the command to queue.
func (ws *WebServer) processControlRequest(req *controlRequest) (*visual.ControlCommand, error) {
	typ, err := visual.ParseCommandType(req.Type)
	if err != nil {
		return nil, &controlError{status: http.StatusBadRequest, msg: err.Error()}
	}
	if typ != visual.CommandTrigger {
		return &visual.ControlCommand{Type: typ}, nil
	}

	if req.Scenario == "" {
		return nil, &controlError{status: http.StatusBadRequest, msg: "trigger requires a scenario"}
	}
	id, ok := ws.table.Parse(req.Scenario)
	if !ok {
		msg := fmt.Sprintf("unknown scenario %q", req.Scenario)
		if guess, ok := ws.table.Suggest(req.Scenario); ok {
			msg += fmt.Sprintf(" (did you mean %s?)", guess)
		}
		return nil, &controlError{status: http.StatusBadRequest, msg: msg}
	}
	if ws.LatestFrame().Running() {
		ws.stats.RecordRejected()
		return nil, &controlError{status: http.StatusConflict, msg: "a flow is already running"}
	}
	cmd := visual.Trigger(id)
	return &cmd, nil
}

func (ws *WebServer) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxControlBody))
	if err != nil {
		GetLogger().Debugf("Error reading request body: %v", err)
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}
	GetLogger().Debugf("Received /api/control request: Body=%s", string(bodyBytes))

	var req controlRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		GetLogger().Debugf("Error decoding JSON: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cmd, err := ws.processControlRequest(&req)
	if err != nil {
		status := http.StatusBadRequest
		if ce, ok := err.(*controlError); ok {
			status = ce.status
		}
		GetLogger().Debugf("Error processing control request: %v", err)
		http.Error(w, err.Error(), status)
		return
	}

	if !ws.queueCommand(*cmd) {
		GetLogger().Debugf("Command queue full, cannot accept command")
		http.Error(w, "Command queue full", http.StatusServiceUnavailable)
		return
	}

	GetLogger().Debugf("Command queued successfully: Type=%s, Scenario=%s", cmd.Type, cmd.Scenario)
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("Command accepted"))
}
