package domain

import (
	"strings"
	"testing"
)

func TestAddNodeStartSelection(t *testing.T) {
	tests := []struct {
		name          string
		build         func(g *Graph)
		expectedStart string
	}{
		{
			name: "first node becomes start",
			build: func(g *Graph) {
				g.AddNode("a", nil, nil)
				g.AddNode("b", nil, nil)
			},
			expectedStart: "a",
		},
		{
			name: "isStart metadata overrides insertion order",
			build: func(g *Graph) {
				g.AddNode("a", nil, nil)
				g.AddNode("b", nil, map[string]any{MetadataKeyIsStart: true})
			},
			expectedStart: "b",
		},
		{
			name: "reused id overwrites node without losing start",
			build: func(g *Graph) {
				g.AddNode("a", nil, nil)
				g.AddNode("a", nil, map[string]any{"description": "rebound"})
			},
			expectedStart: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph("g", "test", nil)
			tt.build(g)

			if g.StartNodeID() != tt.expectedStart {
				t.Errorf("StartNodeID() = %q, expected %q", g.StartNodeID(), tt.expectedStart)
			}
		})
	}
}

func TestAddEdgeUnknownEndpoint(t *testing.T) {
	g := NewGraph("g", "test", nil)
	g.AddNode("a", nil, nil)

	if _, err := g.AddEdge("a", "missing", nil, nil); err == nil {
		t.Fatal("expected error for unknown target node")
	}

	if _, err := g.AddEdge("missing", "a", nil, nil); err == nil {
		t.Fatal("expected error for unknown source node")
	}

	if len(g.Edges()) != 0 {
		t.Errorf("failed AddEdge must not register edges, got %d", len(g.Edges()))
	}
}

func TestEdgesFromKeepsDeclarationOrder(t *testing.T) {
	g := NewGraph("g", "test", nil)
	g.AddNode("a", nil, nil)
	g.AddNode("b", nil, nil)
	g.AddNode("c", nil, nil)

	if _, err := g.AddEdge("a", "c", nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddEdge("a", "b", nil, nil); err != nil {
		t.Fatal(err)
	}

	edges := g.EdgesFrom("a")
	if len(edges) != 2 || edges[0].To != "c" || edges[1].To != "b" {
		t.Errorf("edges out of declaration order: %+v", edges)
	}
}

func TestToTemplateDropsExecutableCode(t *testing.T) {
	g := NewGraph("g1", "shaped", map[string]any{"owner": "tests"})
	g.AddNode("a", NoopCapability, map[string]any{"type": "task", "description": "first"})
	g.AddNode("b", NoopCapability, nil)

	always := EdgeCondition(func(run *ExecutionContext) bool { return true })
	if _, err := g.AddEdge("a", "b", always, nil); err != nil {
		t.Fatal(err)
	}

	template := g.ToTemplate()

	if template.ID != "g1" || template.StartNodeID != "a" {
		t.Errorf("unexpected template identity: %+v", template)
	}

	if len(template.Nodes) != 2 || template.Nodes[0].ID != "a" || template.Nodes[0].Type != "task" {
		t.Errorf("unexpected template nodes: %+v", template.Nodes)
	}

	if len(template.Edges) != 1 || !template.Edges[0].HasCondition {
		t.Errorf("conditional edge must carry hasCondition only: %+v", template.Edges)
	}
}

func TestTryAcquireRelease(t *testing.T) {
	g := NewGraph("g", "test", nil)

	if !g.TryAcquire() {
		t.Fatal("first acquire should succeed")
	}

	if g.TryAcquire() {
		t.Fatal("second acquire should fail while busy")
	}

	g.Release()

	if !g.TryAcquire() {
		t.Fatal("acquire after release should succeed")
	}
}

func TestVisualize(t *testing.T) {
	g := NewGraph("g", "test", nil)
	g.AddNode("a", nil, map[string]any{"description": "start here"})
	g.AddNode("b", nil, nil)

	if _, err := g.AddEdge("a", "b", func(run *ExecutionContext) bool { return true }, nil); err != nil {
		t.Fatal(err)
	}

	rendered := g.Visualize()

	if !strings.HasPrefix(rendered, "flowchart TD") {
		t.Errorf("expected mermaid flowchart, got %q", rendered)
	}

	if !strings.Contains(rendered, "a -->|condition| b") {
		t.Errorf("conditional edge missing from rendering: %q", rendered)
	}
}

func TestConditionBindingKey(t *testing.T) {
	if key := ConditionBindingKey("plan", "apply"); key != "plan_to_apply_condition" {
		t.Errorf("unexpected binding key %q", key)
	}
}
