package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// MaxNodeExecutions caps how often a single node may run within one
// execution, guarding cyclic graphs against runaway loops.
const MaxNodeExecutions = 1000

// Engine drives exactly one run of a graph. It starts Idle, moves to Running
// on Execute, and terminates as Completed or Failed; a terminated engine is
// never reused. The graph's busy flag guards against concurrent runs from
// separate engine instances.
type Engine struct {
	executionID string
	graph       *domain.Graph
	observer    domain.ExecutionObserver

	traceRecorder  *TraceRecorder
	statsCollector *StatsCollector

	mu    sync.Mutex
	state domain.ExecutionStatus
}

type EngineDeps struct {
	Graph          *domain.Graph
	ExecutionID    string
	EventPublisher domain.EventPublisher
	EnableEvents   bool
}

func NewEngine(deps EngineDeps) *Engine {
	executionID := deps.ExecutionID
	if executionID == "" {
		executionID = xid.New().String()
	}

	observer := domain.NewObserver()

	traceRecorder := NewTraceRecorder(deps.Graph.ID, executionID)
	statsCollector := NewStatsCollector()

	observer.Subscribe(traceRecorder)
	observer.Subscribe(statsCollector)

	if deps.EventPublisher != nil {
		observer.Subscribe(NewEventBroadcaster(deps.EventPublisher, deps.EnableEvents, deps.Graph.ID, executionID))
	}

	return &Engine{
		executionID:    executionID,
		graph:          deps.Graph,
		observer:       observer,
		traceRecorder:  traceRecorder,
		statsCollector: statsCollector,
		state:          domain.ExecutionStatusIdle,
	}
}

// ExecutionResult is how run outcomes surface. Business failures land in
// Status and Err instead of being returned as errors, so callers inspect the
// result rather than catching anything.
type ExecutionResult struct {
	ExecutionID  string
	GraphID      string
	Status       domain.ExecutionStatus
	Trace        *domain.ExecutionTrace
	Context      *domain.ExecutionContext
	FailedNodeID string
	Err          error
}

func (e *Engine) ExecutionID() string {
	return e.executionID
}

func (e *Engine) State() domain.ExecutionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

func (e *Engine) setState(state domain.ExecutionStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = state
}

// Stats returns per-node execution statistics collected during the run.
func (e *Engine) Stats() []NodeStats {
	return e.statsCollector.NodeStats()
}

// Execute runs the graph from its start node, threading the seed values
// through the run context. It never returns an error for business failures;
// the result carries the terminal status, the finalized trace, and error
// detail when the run failed.
func (e *Engine) Execute(ctx context.Context, seed map[string]any) ExecutionResult {
	if e.graph.StartNodeID() == "" {
		err := fmt.Errorf("executing graph %s: %w", e.graph.ID, domain.ErrNoStartNode)
		return e.failRun(ctx, nil, "", err)
	}

	if !e.graph.TryAcquire() {
		err := fmt.Errorf("executing graph %s: %w", e.graph.ID, domain.ErrGraphBusy)
		return e.failRun(ctx, nil, "", err)
	}

	defer e.graph.Release()

	e.setState(domain.ExecutionStatusRunning)

	run := domain.NewExecutionContext(e.graph.ID, e.executionID)
	for key, value := range seed {
		run.Set(key, value)
	}

	log.Info().
		Str("graph_id", e.graph.ID).
		Str("execution_id", e.executionID).
		Msgf("Executing graph starting at node %s", e.graph.StartNodeID())

	e.notify(ctx, RunStartedEvent{
		GraphID:     e.graph.ID,
		ExecutionID: e.executionID,
		StartNodeID: e.graph.StartNodeID(),
		Timestamp:   time.Now(),
	})

	currentNodeID := e.graph.StartNodeID()
	executionOrder := 0
	executionCountByNodeID := map[string]int{}

	for {
		node, ok := e.graph.Node(currentNodeID)
		if !ok {
			err := fmt.Errorf("executing graph %s: %w: %s", e.graph.ID, domain.ErrUnknownNode, currentNodeID)
			return e.failRun(ctx, run, currentNodeID, err)
		}

		executionCountByNodeID[node.ID]++
		if executionCountByNodeID[node.ID] > MaxNodeExecutions {
			err := fmt.Errorf("node %s executed more than %d times, aborting run", node.ID, MaxNodeExecutions)
			return e.failRun(ctx, run, node.ID, err)
		}

		nodeStartedAt := time.Now()

		e.notify(ctx, NodeExecutionStartedEvent{
			NodeID:    node.ID,
			Timestamp: nodeStartedAt,
		})

		capability := node.Capability
		if capability == nil {
			capability = domain.NoopCapability
		}

		result, err := capability.Execute(ctx, run)
		if err != nil {
			e.notify(ctx, NodeExecutionFailedEvent{
				NodeID:    node.ID,
				Error:     err,
				StartedAt: nodeStartedAt,
				Timestamp: time.Now(),
			})

			return e.failRun(ctx, run, node.ID, err)
		}

		run.RecordNodeResult(node.ID, result)

		executionOrder++

		e.notify(ctx, NodeExecutionCompletedEvent{
			NodeID:         node.ID,
			Result:         result,
			ExecutionOrder: executionOrder,
			StartedAt:      nodeStartedAt,
			EndedAt:        time.Now(),
		})

		nextEdge := e.selectEdge(run, node.ID)
		if nextEdge == nil {
			// No matching outgoing edge is the normal terminal
			// condition, not a failure.
			break
		}

		e.notify(ctx, EdgeTraversedEvent{
			From:      nextEdge.From,
			To:        nextEdge.To,
			Timestamp: time.Now(),
		})

		currentNodeID = nextEdge.To
	}

	e.notify(ctx, RunCompletedEvent{
		LastNodeID: run.LastNodeID,
		Timestamp:  time.Now(),
	})

	e.setState(domain.ExecutionStatusCompleted)

	log.Info().
		Str("graph_id", e.graph.ID).
		Str("execution_id", e.executionID).
		Msgf("Run completed at node %s", run.LastNodeID)

	return ExecutionResult{
		ExecutionID: e.executionID,
		GraphID:     e.graph.ID,
		Status:      domain.ExecutionStatusCompleted,
		Trace:       e.traceRecorder.Trace(),
		Context:     run,
	}
}

// selectEdge picks the first outgoing edge, in declaration order, whose
// condition is absent or evaluates true.
func (e *Engine) selectEdge(run *domain.ExecutionContext, nodeID string) *domain.Edge {
	for _, edge := range e.graph.EdgesFrom(nodeID) {
		if edge.Condition == nil || edge.Condition(run) {
			return edge
		}
	}
	return nil
}

func (e *Engine) failRun(ctx context.Context, run *domain.ExecutionContext, nodeID string, err error) ExecutionResult {
	log.Error().
		Err(err).
		Str("graph_id", e.graph.ID).
		Str("execution_id", e.executionID).
		Msgf("Run failed at node %s", nodeID)

	e.notify(ctx, RunFailedEvent{
		FailedNodeID: nodeID,
		Error:        err,
		Timestamp:    time.Now(),
	})

	e.setState(domain.ExecutionStatusFailed)

	result := e.failedResult(nodeID, err)
	result.Context = run

	return result
}

func (e *Engine) failedResult(nodeID string, err error) ExecutionResult {
	return ExecutionResult{
		ExecutionID:  e.executionID,
		GraphID:      e.graph.ID,
		Status:       domain.ExecutionStatusFailed,
		Trace:        e.traceRecorder.Trace(),
		FailedNodeID: nodeID,
		Err:          err,
	}
}

func (e *Engine) notify(ctx context.Context, event domain.ExecutionEvent) {
	if err := e.observer.Notify(ctx, event); err != nil {
		log.Error().Err(err).Str("execution_id", e.executionID).Msg("Failed to notify execution event")
	}
}
