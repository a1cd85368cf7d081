package domain

import "time"

type ExecutionStatus string

const (
	ExecutionStatusIdle      ExecutionStatus = "idle"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

type TraceStepKind string

const (
	TraceStepKindNode TraceStepKind = "node"
	TraceStepKindEdge TraceStepKind = "edge"
)

// TraceStep is one entry in an execution trace: either a node execution with
// its timing and result, or an edge traversal.
type TraceStep struct {
	Kind      TraceStepKind `json:"kind"`
	NodeID    string        `json:"nodeId,omitempty"`
	From      string        `json:"from,omitempty"`
	To        string        `json:"to,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
	Result    any           `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ExecutionTrace is the append-only record of one run. It is finalized exactly
// once with the run's terminal status; appends after finalization are rejected.
type ExecutionTrace struct {
	ExecutionID  string          `json:"executionId"`
	GraphID      string          `json:"graphId"`
	Steps        []TraceStep     `json:"steps"`
	Status       ExecutionStatus `json:"status"`
	FailedNodeID string          `json:"failedNodeId,omitempty"`
	Error        string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"startedAt"`
	EndedAt      time.Time       `json:"endedAt"`

	finalized bool
}

func NewExecutionTrace(graphID, executionID string) *ExecutionTrace {
	return &ExecutionTrace{
		ExecutionID: executionID,
		GraphID:     graphID,
		Steps:       []TraceStep{},
		Status:      ExecutionStatusRunning,
		StartedAt:   time.Now(),
	}
}

func (t *ExecutionTrace) AppendStep(step TraceStep) error {
	if t.finalized {
		return ErrTraceFinalized
	}

	t.Steps = append(t.Steps, step)

	return nil
}

// Finalize seals the trace with its terminal status. Only the first call has
// any effect.
func (t *ExecutionTrace) Finalize(status ExecutionStatus, failedNodeID string, err error) {
	if t.finalized {
		return
	}

	t.Status = status
	t.FailedNodeID = failedNodeID
	t.EndedAt = time.Now()

	if err != nil {
		t.Error = err.Error()
	}

	t.finalized = true
}

func (t *ExecutionTrace) IsFinalized() bool {
	return t.finalized
}

// NodeSteps returns only the node-execution entries, in order.
func (t *ExecutionTrace) NodeSteps() []TraceStep {
	steps := []TraceStep{}
	for _, step := range t.Steps {
		if step.Kind == TraceStepKindNode {
			steps = append(steps, step)
		}
	}
	return steps
}
