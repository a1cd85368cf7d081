package managers

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// FlowManager is the single writer for the flow collection. Recorder and
// replayer go through it instead of touching stores directly, and flow
// lifecycle notifications are published from here only.
type FlowManager struct {
	store     domain.FlowStore
	publisher domain.EventPublisher
}

type FlowManagerDeps struct {
	Store     domain.FlowStore
	Publisher domain.EventPublisher
}

func NewFlowManager(deps FlowManagerDeps) *FlowManager {
	return &FlowManager{
		store:     deps.Store,
		publisher: deps.Publisher,
	}
}

func (m *FlowManager) SaveFlow(ctx context.Context, flow domain.Flow) error {
	if err := m.store.SaveFlow(ctx, flow); err != nil {
		return err
	}

	m.publish(ctx, &domain.FlowSavedEvent{
		FlowID:    flow.ID,
		Name:      flow.Name,
		StepCount: len(flow.Steps),
		Timestamp: time.Now().UnixNano(),
	})

	return nil
}

func (m *FlowManager) GetFlow(ctx context.Context, id string) (domain.Flow, error) {
	return m.store.GetFlow(ctx, id)
}

// ListFlows returns all stored flows, newest first.
func (m *FlowManager) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	flows, err := m.store.ListFlows(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].CreatedAt.After(flows[j].CreatedAt)
	})

	return flows, nil
}

// DeleteFlow removes a flow, reporting whether it existed. Store failures are
// logged and reported as false rather than raised.
func (m *FlowManager) DeleteFlow(ctx context.Context, id string) bool {
	existed, err := m.store.DeleteFlow(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("flow_id", id).Msg("Failed to delete flow")
		return false
	}

	if existed {
		m.publish(ctx, &domain.FlowDeletedEvent{
			FlowID:    id,
			Timestamp: time.Now().UnixNano(),
		})
	}

	return existed
}

func (m *FlowManager) publish(ctx context.Context, event domain.Event) {
	if m.publisher == nil {
		return
	}

	if err := m.publisher.PublishEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("event_type", string(event.GetType())).Msg("Failed to publish flow event")
	}
}
