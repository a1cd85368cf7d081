package domain

import "time"

// ExecutionContext is the mutable bag threaded through one run. Capabilities
// read and write Values; the engine records per-node results as it goes.
// A context belongs to exactly one run and is never reused.
type ExecutionContext struct {
	GraphID     string
	ExecutionID string
	StartedAt   time.Time

	Values         map[string]any
	NodeResults    map[string]any
	LastNodeID     string
	LastNodeResult any
}

func NewExecutionContext(graphID, executionID string) *ExecutionContext {
	return &ExecutionContext{
		GraphID:     graphID,
		ExecutionID: executionID,
		StartedAt:   time.Now(),
		Values:      map[string]any{},
		NodeResults: map[string]any{},
	}
}

func (c *ExecutionContext) Set(key string, value any) {
	c.Values[key] = value
}

func (c *ExecutionContext) Get(key string) (any, bool) {
	value, ok := c.Values[key]
	return value, ok
}

// RecordNodeResult stores a node's result and updates the last-node markers.
func (c *ExecutionContext) RecordNodeResult(nodeID string, result any) {
	c.NodeResults[nodeID] = result
	c.LastNodeID = nodeID
	c.LastNodeResult = result
}
