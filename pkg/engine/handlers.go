package engine

import (
	"context"
	"sync"
	"time"

	"github.com/podplay/taskgraph/pkg/domain"
)

// TraceRecorder builds the run's execution trace from observer events and
// finalizes it when the run terminates.
type TraceRecorder struct {
	trace *domain.ExecutionTrace
	mutex sync.Mutex
}

func NewTraceRecorder(graphID, executionID string) *TraceRecorder {
	return &TraceRecorder{
		trace: domain.NewExecutionTrace(graphID, executionID),
	}
}

func (r *TraceRecorder) HandleEvent(ctx context.Context, event domain.ExecutionEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	switch e := event.(type) {
	case NodeExecutionCompletedEvent:
		return r.trace.AppendStep(domain.TraceStep{
			Kind:      domain.TraceStepKindNode,
			NodeID:    e.NodeID,
			StartedAt: e.StartedAt,
			EndedAt:   e.EndedAt,
			Result:    e.Result,
		})

	case NodeExecutionFailedEvent:
		return r.trace.AppendStep(domain.TraceStep{
			Kind:      domain.TraceStepKindNode,
			NodeID:    e.NodeID,
			StartedAt: e.StartedAt,
			EndedAt:   e.Timestamp,
			Error:     e.Error.Error(),
		})

	case EdgeTraversedEvent:
		return r.trace.AppendStep(domain.TraceStep{
			Kind:      domain.TraceStepKindEdge,
			From:      e.From,
			To:        e.To,
			StartedAt: e.Timestamp,
			EndedAt:   e.Timestamp,
		})

	case RunCompletedEvent:
		r.trace.Finalize(domain.ExecutionStatusCompleted, "", nil)

	case RunFailedEvent:
		r.trace.Finalize(domain.ExecutionStatusFailed, e.FailedNodeID, e.Error)
	}

	return nil
}

func (r *TraceRecorder) Trace() *domain.ExecutionTrace {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.trace
}

// NodeStats aggregates how often and how long a node executed during one run.
type NodeStats struct {
	NodeID        string        `json:"node_id"`
	Executions    int           `json:"executions"`
	TotalDuration time.Duration `json:"total_duration"`
}

// StatsCollector collects per-node execution statistics from observer events.
type StatsCollector struct {
	statsByNodeID map[string]*NodeStats
	nodeOrder     []string
	mutex         sync.Mutex
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		statsByNodeID: map[string]*NodeStats{},
	}
}

func (c *StatsCollector) HandleEvent(ctx context.Context, event domain.ExecutionEvent) error {
	completed, ok := event.(NodeExecutionCompletedEvent)
	if !ok {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats, exists := c.statsByNodeID[completed.NodeID]
	if !exists {
		stats = &NodeStats{NodeID: completed.NodeID}
		c.statsByNodeID[completed.NodeID] = stats
		c.nodeOrder = append(c.nodeOrder, completed.NodeID)
	}

	stats.Executions++
	stats.TotalDuration += completed.EndedAt.Sub(completed.StartedAt)

	return nil
}

// NodeStats returns collected statistics in first-execution order.
func (c *StatsCollector) NodeStats() []NodeStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := make([]NodeStats, 0, len(c.nodeOrder))
	for _, nodeID := range c.nodeOrder {
		stats = append(stats, *c.statsByNodeID[nodeID])
	}
	return stats
}

// EventBroadcaster forwards the named lifecycle events across the
// notification boundary. Internal-only events, such as edge traversals, never
// leave the engine.
type EventBroadcaster struct {
	publisher    domain.EventPublisher
	enableEvents bool
	graphID      string
	executionID  string
}

func NewEventBroadcaster(publisher domain.EventPublisher, enableEvents bool, graphID, executionID string) *EventBroadcaster {
	return &EventBroadcaster{
		publisher:    publisher,
		enableEvents: enableEvents,
		graphID:      graphID,
		executionID:  executionID,
	}
}

func (b *EventBroadcaster) HandleEvent(ctx context.Context, event domain.ExecutionEvent) error {
	if !b.enableEvents {
		return nil
	}

	switch e := event.(type) {
	case RunStartedEvent:
		return b.publisher.PublishEvent(ctx, &domain.RunStartedEvent{
			GraphID:     b.graphID,
			ExecutionID: b.executionID,
			StartNodeID: e.StartNodeID,
			Timestamp:   e.Timestamp.UnixNano(),
		})

	case NodeExecutionStartedEvent:
		return b.publisher.PublishEvent(ctx, &domain.NodeStartedEvent{
			GraphID:     b.graphID,
			ExecutionID: b.executionID,
			NodeID:      e.NodeID,
			Timestamp:   e.Timestamp.UnixNano(),
		})

	case NodeExecutionCompletedEvent:
		return b.publisher.PublishEvent(ctx, &domain.NodeCompletedEvent{
			GraphID:        b.graphID,
			ExecutionID:    b.executionID,
			NodeID:         e.NodeID,
			Result:         e.Result,
			ExecutionOrder: e.ExecutionOrder,
			Timestamp:      e.EndedAt.UnixNano(),
		})

	case RunCompletedEvent:
		return b.publisher.PublishEvent(ctx, &domain.RunCompletedEvent{
			GraphID:     b.graphID,
			ExecutionID: b.executionID,
			LastNodeID:  e.LastNodeID,
			Timestamp:   e.Timestamp.UnixNano(),
		})

	case RunFailedEvent:
		return b.publisher.PublishEvent(ctx, &domain.RunFailedEvent{
			GraphID:      b.graphID,
			ExecutionID:  b.executionID,
			FailedNodeID: e.FailedNodeID,
			Error:        e.Error.Error(),
			Timestamp:    e.Timestamp.UnixNano(),
		})
	}

	return nil
}
