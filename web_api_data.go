package main

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/plugins/runmetrics"
	"github.com/Readm/backend_flow_sim/scenario"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func writeJSON(w http.ResponseWriter, status int, v any, what string) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to encode "+what, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (ws *WebServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frame := ws.LatestFrame()
	if frame == nil {
		http.Error(w, "No frame available", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, frame, "frame")
}

type scenarioSummary struct {
	ID          scenario.ID `json:"id"`
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle"`
	Description string      `json:"description,omitempty"`
	Steps       int         `json:"steps"`
	Builtin     bool        `json:"builtin"`
}

type scenarioList struct {
	Hash      string            `json:"hash"`
	Scenarios []scenarioSummary `json:"scenarios"`
}

func (ws *WebServer) handleScenarios(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := ws.table.All()
	out := scenarioList{Hash: ws.table.Hash(), Scenarios: make([]scenarioSummary, len(all))}
	for i, s := range all {
		out.Scenarios[i] = scenarioSummary{
			ID:          s.ID,
			Title:       s.Title,
			Subtitle:    s.Subtitle,
			Description: s.Description,
			Steps:       len(s.Steps),
			Builtin:     ws.table.IsBuiltin(s.ID),
		}
	}
	writeJSON(w, http.StatusOK, out, "scenarios")
}

type topology struct {
	Nodes       []core.Node       `json:"nodes"`
	Connections []core.Connection `json:"connections"`
}

func (ws *WebServer) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reg := ws.table.Registry()
	writeJSON(w, http.StatusOK, topology{Nodes: reg.Nodes(), Connections: reg.Connections()}, "nodes")
}

type statsResponse struct {
	runmetrics.Stats
	QueueDepth int    `json:"queueDepth"`
	Summary    string `json:"summary"`
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := ws.stats.Snapshot()
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:      stats,
		QueueDepth: ws.commands.Len(),
		Summary:    stats.Summary(),
	}, "stats")
}

func (ws *WebServer) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, GetPredefinedProfiles(), "profiles")
}
