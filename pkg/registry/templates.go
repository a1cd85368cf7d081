package registry

import (
	"fmt"

	"github.com/podplay/taskgraph/pkg/domain"
)

// FromTemplate reconstructs an executable graph from its serialized shape.
// Node capabilities come from the bindings keyed by node id; conditional
// edges look up their predicate under the "{from}_to_{to}_condition" key.
// Missing bindings default to always-succeeding behavior, so a template can
// always be instantiated even with partial bindings.
func FromTemplate(template domain.GraphTemplate, bindings domain.CapabilityBindings) (*domain.Graph, error) {
	graph := domain.NewGraph(template.ID, template.Name, template.Metadata)
	graph.Description = template.Description

	for _, node := range template.Nodes {
		metadata := make(map[string]any, len(node.Metadata)+2)
		for key, value := range node.Metadata {
			metadata[key] = value
		}

		metadata["type"] = node.Type
		metadata["description"] = node.Description

		graph.AddNode(node.ID, bindings.CapabilityFor(node.ID), metadata)
	}

	for _, edge := range template.Edges {
		var condition domain.EdgeCondition
		if edge.HasCondition {
			condition = bindings.ConditionFor(edge.From, edge.To)
		}

		if _, err := graph.AddEdge(edge.From, edge.To, condition, edge.Metadata); err != nil {
			return nil, fmt.Errorf("reconstructing template %s: %w", template.ID, err)
		}
	}

	if template.StartNodeID != "" {
		if err := graph.SetStartNode(template.StartNodeID); err != nil {
			return nil, fmt.Errorf("reconstructing template %s: %w", template.ID, err)
		}
	}

	return graph, nil
}
