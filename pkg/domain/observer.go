package domain

import "context"

// ExecutionObserver fans events out to subscribed handlers. Delivery is
// synchronous and in subscription order so trace and event ordering stay
// consistent with execution order.
type ExecutionObserver interface {
	Subscribe(handler ExecutionEventHandler)
	Notify(ctx context.Context, event ExecutionEvent) error
}

type ExecutionEventHandler interface {
	HandleEvent(ctx context.Context, event ExecutionEvent) error
}

type ExecutionEventType string

const (
	ExecutionEventTypeRunStarted    ExecutionEventType = "run_started"
	ExecutionEventTypeNodeStarted   ExecutionEventType = "node_started"
	ExecutionEventTypeNodeCompleted ExecutionEventType = "node_completed"
	ExecutionEventTypeNodeFailed    ExecutionEventType = "node_failed"
	ExecutionEventTypeEdgeTraversed ExecutionEventType = "edge_traversed"
	ExecutionEventTypeRunCompleted  ExecutionEventType = "run_completed"
	ExecutionEventTypeRunFailed     ExecutionEventType = "run_failed"
)

type ExecutionEvent interface {
	GetEventType() ExecutionEventType
}

type Observer struct {
	handlers []ExecutionEventHandler
}

func NewObserver() *Observer {
	return &Observer{
		handlers: []ExecutionEventHandler{},
	}
}

func (o *Observer) Subscribe(handler ExecutionEventHandler) {
	o.handlers = append(o.handlers, handler)
}

func (o *Observer) Notify(ctx context.Context, event ExecutionEvent) error {
	for _, handler := range o.handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
