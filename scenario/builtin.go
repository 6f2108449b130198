package scenario

import (
	"time"

	"github.com/Readm/backend_flow_sim/core"
)

// builtinScenarios returns the four predefined request flows.
func builtinScenarios() []Scenario {
	return []Scenario{
		{
			ID:          ReadHit,
			Title:       "Read Request",
			Subtitle:    "Cache Hit",
			Description: "The app finds the key in the cache and answers without touching the database.",
			Steps: []core.FlowStep{
				{From: core.NodeClient, To: core.NodeApp, Label: "GET /user/123", Log: "Client requests user profile via API."},
				{From: core.NodeApp, To: core.NodeCache, Label: "Check Key", Log: "App checks Memcached for user_123."},
				{From: core.NodeCache, To: core.NodeApp, Label: "Data Found", Kind: core.PacketResponse, Log: "Cache Hit! Returning data immediately.",
					SideEffect: &core.SideEffect{Node: core.NodeCache, Flash: core.FlashSuccess}},
				{From: core.NodeApp, To: core.NodeClient, Label: "JSON Res", Kind: core.PacketResponse, Log: "App returns response to Client."},
			},
		},
		{
			ID:          ReadMiss,
			Title:       "Read Request",
			Subtitle:    "Cache Miss + DB",
			Description: "The cache misses, the app falls back to the database and populates the cache.",
			Steps: []core.FlowStep{
				{From: core.NodeClient, To: core.NodeApp, Label: "GET /user/123", Log: "Client requests user profile."},
				{From: core.NodeApp, To: core.NodeCache, Label: "Check Key", Log: "App checks cache."},
				{From: core.NodeCache, To: core.NodeApp, Label: "Null", Kind: core.PacketError, Log: "Cache Miss. Data not found.",
					SideEffect: &core.SideEffect{Node: core.NodeCache, Flash: core.FlashError}},
				{From: core.NodeApp, To: core.NodeDB, Label: "SELECT *", Log: "App queries Primary Database."},
				{From: core.NodeDB, To: core.NodeApp, Label: "Row Data", Kind: core.PacketResponse, Log: "Database returns user record."},
				{From: core.NodeApp, To: core.NodeCache, Label: "SET Key", Kind: core.PacketSync, Log: "App populates cache for future requests."},
				{From: core.NodeApp, To: core.NodeClient, Label: "JSON Res", Kind: core.PacketResponse, Log: "App returns response to Client."},
			},
		},
		{
			ID:          Write,
			Title:       "Write Request",
			Subtitle:    "DB + Index Sync",
			Description: "The app writes the source of truth, invalidates the cache and syncs the search index.",
			Steps: []core.FlowStep{
				{From: core.NodeClient, To: core.NodeApp, Label: "POST /posts", Log: "Client submits new post."},
				{From: core.NodeApp, To: core.NodeDB, Label: "INSERT", Log: "App writes source of truth to Primary DB."},
				{From: core.NodeDB, To: core.NodeApp, Label: "OK", Kind: core.PacketResponse, Log: "DB confirms write success."},
				// zero delay falls back to the default gap
				{From: core.NodeApp, To: core.NodeCache, Label: "INVALIDATE", Kind: core.PacketError, Log: "App invalidates stale cache entries."},
				{From: core.NodeApp, To: core.NodeIndex, Label: "INDEX DOC", Kind: core.PacketSync, Log: "App updates Elasticsearch index.", Delay: 500 * time.Millisecond},
				{From: core.NodeApp, To: core.NodeClient, Label: "201 Created", Kind: core.PacketResponse, Log: "App confirms success to Client."},
			},
		},
		{
			ID:          AsyncTask,
			Title:       "Async Task",
			Subtitle:    "Queue + Worker",
			Description: "The app publishes a task and answers immediately; a worker handles it later.",
			Steps: []core.FlowStep{
				{From: core.NodeClient, To: core.NodeApp, Label: "POST /email", Log: "Client requests email notification."},
				{From: core.NodeApp, To: core.NodeQueue, Label: "Pub Task", Kind: core.PacketAsync, Log: "App offloads task to RabbitMQ."},
				{From: core.NodeApp, To: core.NodeClient, Label: "202 Accepted", Kind: core.PacketResponse, Log: "App responds immediately (Non-blocking).", Delay: 500 * time.Millisecond},
				{From: core.NodeQueue, To: core.NodeWorker, Label: "Sub Task", Kind: core.PacketAsync, Log: "Worker service pulls task from Queue.", Delay: 500 * time.Millisecond},
				{From: core.NodeWorker, To: core.NodeExternal, Label: "Send Mail", Kind: core.PacketAsync, Log: "Worker sends email to external provider."},
			},
		},
	}
}

// Builtin returns a table holding the four predefined scenarios on the
// default node registry.
func Builtin() *Table {
	t := NewTable(core.DefaultRegistry())
	for _, s := range builtinScenarios() {
		if err := t.Add(s); err != nil {
			panic(err)
		}
		t.builtin[s.ID] = true
	}
	return t
}

// IsBuiltin reports whether id is one of the predefined scenarios.
func (t *Table) IsBuiltin(id ID) bool {
	return t != nil && t.builtin[id]
}
