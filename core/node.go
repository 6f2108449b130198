package core

import "fmt"

// NodeID identifies one of the conceptual system entities on the diagram.
type NodeID string

const (
	NodeClient   NodeID = "CLIENT"   // browser / mobile app
	NodeApp      NodeID = "APP"      // API & business logic
	NodeCache    NodeID = "CACHE"    // in-memory store
	NodeDB       NodeID = "DB"       // primary database
	NodeIndex    NodeID = "INDEX"    // search index
	NodeQueue    NodeID = "QUEUE"    // message queue
	NodeWorker   NodeID = "WORKER"   // async processor
	NodeExternal NodeID = "EXTERNAL" // email / third party API
)

// Position represents the position of a node in visualization,
// as percentages (0-100) of the drawing surface.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a static descriptor of a system entity.
type Node struct {
	ID          NodeID   `json:"id"`
	Label       string   `json:"label"`
	Icon        string   `json:"icon"`
	Position    Position `json:"position"`
	Description string   `json:"description"`
}

// Connection is a static directional line drawn between two nodes.
type Connection struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

// Registry holds the immutable node set and the connections between them.
type Registry struct {
	order []NodeID
	nodes map[NodeID]Node
	conns []Connection
}

var defaultNodes = []Node{
	{ID: NodeClient, Label: "Client", Icon: "Monitor", Position: Position{X: 50, Y: 10}, Description: "Browser / Mobile App"},
	{ID: NodeApp, Label: "App Server", Icon: "Server", Position: Position{X: 50, Y: 45}, Description: "API & Business Logic"},
	{ID: NodeCache, Label: "Redis Cache", Icon: "Layers", Position: Position{X: 80, Y: 45}, Description: "In-Memory Store"},
	{ID: NodeDB, Label: "Primary DB", Icon: "Database", Position: Position{X: 50, Y: 80}, Description: "PostgreSQL / MySQL"},
	{ID: NodeIndex, Label: "Search Index", Icon: "Search", Position: Position{X: 80, Y: 80}, Description: "Elasticsearch"},
	{ID: NodeQueue, Label: "Msg Queue", Icon: "MessageSquare", Position: Position{X: 20, Y: 45}, Description: "RabbitMQ / Kafka"},
	{ID: NodeWorker, Label: "Worker", Icon: "Cpu", Position: Position{X: 20, Y: 70}, Description: "Async Processor"},
	{ID: NodeExternal, Label: "External", Icon: "Globe", Position: Position{X: 20, Y: 90}, Description: "Email / 3rd Party API"},
}

var defaultConnections = []Connection{
	{From: NodeClient, To: NodeApp},
	{From: NodeApp, To: NodeCache},
	{From: NodeApp, To: NodeDB},
	{From: NodeApp, To: NodeIndex},
	{From: NodeApp, To: NodeQueue},
	{From: NodeQueue, To: NodeWorker},
	{From: NodeWorker, To: NodeExternal},
}

// NewRegistry builds a registry from nodes and connections. Node ids must be
// unique and every connection must reference a known node.
func NewRegistry(nodes []Node, conns []Connection) (*Registry, error) {
	r := &Registry{
		order: make([]NodeID, 0, len(nodes)),
		nodes: make(map[NodeID]Node, len(nodes)),
		conns: make([]Connection, 0, len(conns)),
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node id cannot be empty")
		}
		if _, exists := r.nodes[n.ID]; exists {
			return nil, fmt.Errorf("duplicate node id %s", n.ID)
		}
		r.order = append(r.order, n.ID)
		r.nodes[n.ID] = n
	}
	for _, c := range conns {
		if _, ok := r.nodes[c.From]; !ok {
			return nil, fmt.Errorf("connection references unknown source node %s", c.From)
		}
		if _, ok := r.nodes[c.To]; !ok {
			return nil, fmt.Errorf("connection references unknown target node %s", c.To)
		}
		r.conns = append(r.conns, c)
	}
	return r, nil
}

var defaultRegistry = mustRegistry(defaultNodes, defaultConnections)

func mustRegistry(nodes []Node, conns []Connection) *Registry {
	r, err := NewRegistry(nodes, conns)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the eight-node backend diagram.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Node returns the descriptor for id.
func (r *Registry) Node(id NodeID) (Node, bool) {
	if r == nil {
		return Node{}, false
	}
	n, ok := r.nodes[id]
	return n, ok
}

// Has reports whether id is a registered node.
func (r *Registry) Has(id NodeID) bool {
	_, ok := r.Node(id)
	return ok
}

// Nodes returns all nodes in registration order.
func (r *Registry) Nodes() []Node {
	if r == nil {
		return nil
	}
	out := make([]Node, len(r.order))
	for i, id := range r.order {
		out[i] = r.nodes[id]
	}
	return out
}

// Connections returns a copy of the static connection lines.
func (r *Registry) Connections() []Connection {
	if r == nil {
		return nil
	}
	out := make([]Connection, len(r.conns))
	copy(out, r.conns)
	return out
}

// Interpolate returns the point at progress (clamped to [0,1]) on the
// straight line between from and to.
func Interpolate(from, to Position, progress float64) Position {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	return Position{
		X: from.X + (to.X-from.X)*progress,
		Y: from.Y + (to.Y-from.Y)*progress,
	}
}
