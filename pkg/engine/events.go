package engine

import (
	"time"

	"github.com/podplay/taskgraph/pkg/domain"
)

// Internal observer events. These drive the trace recorder, stats collector
// and the external event broadcaster; only the broadcaster crosses the
// notification boundary.

type RunStartedEvent struct {
	GraphID     string
	ExecutionID string
	StartNodeID string
	Timestamp   time.Time
}

func (RunStartedEvent) GetEventType() domain.ExecutionEventType {
	return domain.ExecutionEventTypeRunStarted
}

type NodeExecutionStartedEvent struct {
	NodeID    string
	Timestamp time.Time
}

func (NodeExecutionStartedEvent) GetEventType() domain.ExecutionEventType {
	return domain.ExecutionEventTypeNodeStarted
}

type NodeExecutionCompletedEvent struct {
	NodeID         string
	Result         any
	ExecutionOrder int
	StartedAt      time.Time
	EndedAt        time.Time
}

func (NodeExecutionCompletedEvent) GetEventType() domain.ExecutionEventType {
	return domain.ExecutionEventTypeNodeCompleted
}

type NodeExecutionFailedEvent struct {
	NodeID    string
	Error     error
	StartedAt time.Time
	Timestamp time.Time
}

func (NodeExecutionFailedEvent) GetEventType() domain.ExecutionEventType {
	return domain.ExecutionEventTypeNodeFailed
}

type EdgeTraversedEvent struct {
	From      string
	To        string
	Timestamp time.Time
}

func (EdgeTraversedEvent) GetEventType() domain.ExecutionEventType {
	return domain.ExecutionEventTypeEdgeTraversed
}

type RunCompletedEvent struct {
	LastNodeID string
	Timestamp  time.Time
}

func (RunCompletedEvent) GetEventType() domain.ExecutionEventType {
	return domain.ExecutionEventTypeRunCompleted
}

type RunFailedEvent struct {
	FailedNodeID string
	Error        error
	Timestamp    time.Time
}

func (RunFailedEvent) GetEventType() domain.ExecutionEventType {
	return domain.ExecutionEventTypeRunFailed
}
