package domain

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Capability is the executable unit of work attached to a node. A capability
// receives the run context, may mutate its value bag, and returns a result
// that gets recorded under the node's id.
type Capability interface {
	Execute(ctx context.Context, run *ExecutionContext) (any, error)
}

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc func(ctx context.Context, run *ExecutionContext) (any, error)

func (f CapabilityFunc) Execute(ctx context.Context, run *ExecutionContext) (any, error) {
	return f(ctx, run)
}

// NoopCapability succeeds immediately without touching the run context. It is
// the default binding for template nodes that have no capability registered.
var NoopCapability Capability = CapabilityFunc(func(ctx context.Context, run *ExecutionContext) (any, error) {
	return nil, nil
})

// EdgeCondition gates an edge. A nil condition means the edge is
// unconditional and always matches.
type EdgeCondition func(run *ExecutionContext) bool

// MetadataKeyIsStart marks a node as the graph's start node regardless of
// insertion order.
const MetadataKeyIsStart = "isStart"

type Node struct {
	ID          string
	Type        string
	Description string
	Metadata    map[string]any
	Capability  Capability
}

type Edge struct {
	From        string
	To          string
	Description string
	Metadata    map[string]any
	Condition   EdgeCondition
}

// HasCondition reports whether the edge is gated. Only this boolean survives
// serialization; the predicate itself never does.
func (e Edge) HasCondition() bool {
	return e.Condition != nil
}

// Graph is a directed structure of nodes and edges describing an orchestrated
// task shape. Nodes are registered through AddNode and connected through
// AddEdge; edges keep declaration order per source node. At most one run may
// be in flight per graph instance.
type Graph struct {
	ID          string
	Name        string
	Description string
	Metadata    map[string]any

	nodes       map[string]*Node
	nodeOrder   []string
	edgesFrom   map[string][]*Edge
	edgeOrder   []*Edge
	startNodeID string

	mu   sync.Mutex
	busy bool
}

func NewGraph(id, name string, metadata map[string]any) *Graph {
	if metadata == nil {
		metadata = map[string]any{}
	}

	return &Graph{
		ID:        id,
		Name:      name,
		Metadata:  metadata,
		nodes:     map[string]*Node{},
		edgesFrom: map[string][]*Edge{},
	}
}

// AddNode registers a node, overwriting any previous node with the same id.
// The first node added becomes the start node unless a later node carries the
// isStart metadata marker.
func (g *Graph) AddNode(id string, capability Capability, metadata map[string]any) *Node {
	if metadata == nil {
		metadata = map[string]any{}
	}

	node := &Node{
		ID:          id,
		Type:        stringFromMetadata(metadata, "type"),
		Description: stringFromMetadata(metadata, "description"),
		Metadata:    metadata,
		Capability:  capability,
	}

	if _, exists := g.nodes[id]; !exists {
		g.nodeOrder = append(g.nodeOrder, id)
	}

	g.nodes[id] = node

	if g.startNodeID == "" {
		g.startNodeID = id
	}

	if isStart, ok := metadata[MetadataKeyIsStart].(bool); ok && isStart {
		g.startNodeID = id
	}

	return node
}

// AddEdge connects two registered nodes. A nil condition makes the edge
// unconditional. Edges are evaluated in the order they were added.
func (g *Graph) AddEdge(from, to string, condition EdgeCondition, metadata map[string]any) (*Edge, error) {
	if _, ok := g.nodes[from]; !ok {
		return nil, fmt.Errorf("adding edge %s -> %s: %w: %s", from, to, ErrUnknownNode, from)
	}

	if _, ok := g.nodes[to]; !ok {
		return nil, fmt.Errorf("adding edge %s -> %s: %w: %s", from, to, ErrUnknownNode, to)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	edge := &Edge{
		From:        from,
		To:          to,
		Description: stringFromMetadata(metadata, "description"),
		Metadata:    metadata,
		Condition:   condition,
	}

	g.edgesFrom[from] = append(g.edgesFrom[from], edge)
	g.edgeOrder = append(g.edgeOrder, edge)

	return edge, nil
}

func (g *Graph) Node(id string) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// Nodes returns the graph's nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns all edges in declaration order.
func (g *Graph) Edges() []*Edge {
	return g.edgeOrder
}

// EdgesFrom returns the outgoing edges of a node in declaration order.
func (g *Graph) EdgesFrom(nodeID string) []*Edge {
	return g.edgesFrom[nodeID]
}

func (g *Graph) StartNodeID() string {
	return g.startNodeID
}

// SetStartNode overrides the start node. It fails if the node is unknown.
func (g *Graph) SetStartNode(nodeID string) error {
	if _, ok := g.nodes[nodeID]; !ok {
		return fmt.Errorf("setting start node: %w: %s", ErrUnknownNode, nodeID)
	}

	g.startNodeID = nodeID

	return nil
}

// TryAcquire claims the graph's single run slot. It returns false if a run is
// already in flight.
func (g *Graph) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return false
	}

	g.busy = true

	return true
}

// Release frees the run slot. Safe to call on an idle graph.
func (g *Graph) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.busy = false
}

func (g *Graph) IsBusy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.busy
}

// ToTemplate projects the graph into its serializable shape. Capabilities and
// condition predicates are dropped; conditional edges keep only a hasCondition
// marker so bindings can be reattached on reconstruction.
func (g *Graph) ToTemplate() GraphTemplate {
	template := GraphTemplate{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Metadata:    g.Metadata,
		StartNodeID: g.startNodeID,
		Nodes:       []TemplateNode{},
		Edges:       []TemplateEdge{},
	}

	for _, node := range g.Nodes() {
		template.Nodes = append(template.Nodes, TemplateNode{
			ID:          node.ID,
			Type:        node.Type,
			Description: node.Description,
			Metadata:    node.Metadata,
		})
	}

	for _, edge := range g.edgeOrder {
		template.Edges = append(template.Edges, TemplateEdge{
			From:         edge.From,
			To:           edge.To,
			Description:  edge.Description,
			Metadata:     edge.Metadata,
			HasCondition: edge.HasCondition(),
		})
	}

	return template
}

// Visualize renders the graph shape as a mermaid flowchart. Pure projection,
// no side effects.
func (g *Graph) Visualize() string {
	var b strings.Builder

	b.WriteString("flowchart TD\n")

	for _, node := range g.Nodes() {
		label := node.ID
		if node.Description != "" {
			label = node.Description
		}

		if node.ID == g.startNodeID {
			fmt.Fprintf(&b, "    %s([%q])\n", node.ID, label)
		} else {
			fmt.Fprintf(&b, "    %s[%q]\n", node.ID, label)
		}
	}

	for _, edge := range g.edgeOrder {
		if edge.HasCondition() {
			fmt.Fprintf(&b, "    %s -->|condition| %s\n", edge.From, edge.To)
		} else {
			fmt.Fprintf(&b, "    %s --> %s\n", edge.From, edge.To)
		}
	}

	return b.String()
}

func stringFromMetadata(metadata map[string]any, key string) string {
	value, ok := metadata[key].(string)
	if !ok {
		return ""
	}
	return value
}
