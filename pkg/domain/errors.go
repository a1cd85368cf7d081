package domain

import "errors"

var (
	// Configuration errors. Returned when a graph's shape makes it
	// unexecutable before any node runs.
	ErrNoStartNode = errors.New("graph has no start node")
	ErrUnknownNode = errors.New("edge references unknown node")

	// ErrGraphBusy is returned when a run is attempted on a graph that
	// already has one in flight. The in-flight run is unaffected.
	ErrGraphBusy = errors.New("graph execution already in progress")

	ErrGraphNotFound    = errors.New("graph not found")
	ErrFlowNotFound     = errors.New("flow not found")
	ErrTemplateNotFound = errors.New("template not found")

	// ErrToolInvokerUnavailable is returned when a step needs an external
	// tool invocation capability and none is wired.
	ErrToolInvokerUnavailable = errors.New("tool invoker unavailable")

	ErrNotRecording   = errors.New("no recording in progress")
	ErrTraceFinalized = errors.New("execution trace already finalized")
)
