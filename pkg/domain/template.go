package domain

import "fmt"

// GraphTemplate is the durable, serializable shape of a graph. It carries
// only data: ids, types, descriptions and metadata. Executable behavior is
// reattached at reconstruction time through CapabilityBindings.
type GraphTemplate struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Metadata    map[string]any `json:"metadata" yaml:"metadata"`
	StartNodeID string         `json:"startNodeId" yaml:"startNodeId"`
	Nodes       []TemplateNode `json:"nodes" yaml:"nodes"`
	Edges       []TemplateEdge `json:"edges" yaml:"edges"`
}

type TemplateNode struct {
	ID          string         `json:"id" yaml:"id"`
	Type        string         `json:"type" yaml:"type"`
	Description string         `json:"description" yaml:"description"`
	Metadata    map[string]any `json:"metadata" yaml:"metadata"`
}

type TemplateEdge struct {
	From         string         `json:"from" yaml:"from"`
	To           string         `json:"to" yaml:"to"`
	Description  string         `json:"description" yaml:"description"`
	Metadata     map[string]any `json:"metadata" yaml:"metadata"`
	HasCondition bool           `json:"hasCondition" yaml:"hasCondition"`
}

// CapabilityBindings supplies the executable behavior for a template being
// reconstructed. Capabilities are keyed by node id, conditions by the
// ConditionBindingKey of the edge. Missing bindings fall back to
// always-succeeding defaults.
type CapabilityBindings struct {
	Capabilities map[string]Capability
	Conditions   map[string]EdgeCondition
}

// ConditionBindingKey is the lookup key for a conditional edge's predicate.
func ConditionBindingKey(from, to string) string {
	return fmt.Sprintf("%s_to_%s_condition", from, to)
}

func (b CapabilityBindings) CapabilityFor(nodeID string) Capability {
	if capability, ok := b.Capabilities[nodeID]; ok && capability != nil {
		return capability
	}
	return NoopCapability
}

// ConditionFor returns the bound predicate for a conditional edge, or an
// always-true condition when no binding exists.
func (b CapabilityBindings) ConditionFor(from, to string) EdgeCondition {
	if condition, ok := b.Conditions[ConditionBindingKey(from, to)]; ok && condition != nil {
		return condition
	}
	return func(run *ExecutionContext) bool { return true }
}
