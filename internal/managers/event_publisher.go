package managers

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// EventHandler consumes one published lifecycle event.
type EventHandler func(ctx context.Context, event domain.Event) error

// InProcessEventPublisher fans lifecycle events out to registered handlers,
// synchronously and in registration order. A handler error is logged and does
// not stop delivery to the remaining handlers.
type InProcessEventPublisher struct {
	mutex    sync.RWMutex
	handlers []EventHandler
}

func NewInProcessEventPublisher() *InProcessEventPublisher {
	return &InProcessEventPublisher{}
}

func (p *InProcessEventPublisher) RegisterHandler(handler EventHandler) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.handlers = append(p.handlers, handler)
}

func (p *InProcessEventPublisher) PublishEvent(ctx context.Context, event domain.Event) error {
	log.Debug().Str("event_type", string(event.GetType())).Msg("Publishing event")

	p.mutex.RLock()
	handlers := make([]EventHandler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mutex.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			log.Error().Err(err).Str("event_type", string(event.GetType())).Msg("Event handler failed")
		}
	}

	return nil
}
