package domain

import "context"

// EventPublisher is the notification boundary. Named lifecycle events are the
// sole channel for external observers (UI, orchestration) to learn of
// internal state changes; they carry no business logic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event Event) error
}

type Event interface {
	GetType() EventType
}

type EventType string

const (
	RunStarted       EventType = "run_started"
	NodeStarted      EventType = "node_started"
	NodeCompleted    EventType = "node_completed"
	RunCompleted     EventType = "run_completed"
	RunFailed        EventType = "run_failed"
	RecordingStarted EventType = "recording_started"
	RecordingStopped EventType = "recording_stopped"
	FlowSaved        EventType = "flow_saved"
	FlowDeleted      EventType = "flow_deleted"
)

type RunStartedEvent struct {
	GraphID     string `json:"graph_id"`
	ExecutionID string `json:"execution_id"`
	StartNodeID string `json:"start_node_id"`
	Timestamp   int64  `json:"timestamp"`
}

func (e *RunStartedEvent) GetType() EventType { return RunStarted }

type NodeStartedEvent struct {
	GraphID     string `json:"graph_id"`
	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	Timestamp   int64  `json:"timestamp"`
}

func (e *NodeStartedEvent) GetType() EventType { return NodeStarted }

type NodeCompletedEvent struct {
	GraphID        string `json:"graph_id"`
	ExecutionID    string `json:"execution_id"`
	NodeID         string `json:"node_id"`
	Result         any    `json:"result,omitempty"`
	ExecutionOrder int    `json:"execution_order"`
	Timestamp      int64  `json:"timestamp"`
}

func (e *NodeCompletedEvent) GetType() EventType { return NodeCompleted }

type RunCompletedEvent struct {
	GraphID     string `json:"graph_id"`
	ExecutionID string `json:"execution_id"`
	LastNodeID  string `json:"last_node_id"`
	Timestamp   int64  `json:"timestamp"`
}

func (e *RunCompletedEvent) GetType() EventType { return RunCompleted }

type RunFailedEvent struct {
	GraphID      string `json:"graph_id"`
	ExecutionID  string `json:"execution_id"`
	FailedNodeID string `json:"failed_node_id"`
	Error        string `json:"error"`
	Timestamp    int64  `json:"timestamp"`
}

func (e *RunFailedEvent) GetType() EventType { return RunFailed }

type RecordingStartedEvent struct {
	TaskDescription string `json:"task_description"`
	Project         string `json:"project"`
	Timestamp       int64  `json:"timestamp"`
}

func (e *RecordingStartedEvent) GetType() EventType { return RecordingStarted }

type RecordingStoppedEvent struct {
	FlowID    string `json:"flow_id,omitempty"`
	StepCount int    `json:"step_count"`
	Timestamp int64  `json:"timestamp"`
}

func (e *RecordingStoppedEvent) GetType() EventType { return RecordingStopped }

type FlowSavedEvent struct {
	FlowID    string `json:"flow_id"`
	Name      string `json:"name"`
	StepCount int    `json:"step_count"`
	Timestamp int64  `json:"timestamp"`
}

func (e *FlowSavedEvent) GetType() EventType { return FlowSaved }

type FlowDeletedEvent struct {
	FlowID    string `json:"flow_id"`
	Timestamp int64  `json:"timestamp"`
}

func (e *FlowDeletedEvent) GetType() EventType { return FlowDeleted }
