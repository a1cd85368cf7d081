package managers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podplay/taskgraph/internal/storage"
	"github.com/podplay/taskgraph/pkg/domain"
)

type capturingPublisher struct {
	events []domain.Event
}

func (p *capturingPublisher) PublishEvent(ctx context.Context, event domain.Event) error {
	p.events = append(p.events, event)
	return nil
}

func TestFlowManager_SaveAndGet(t *testing.T) {
	publisher := &capturingPublisher{}
	m := NewFlowManager(FlowManagerDeps{Store: storage.NewMemoryStore(), Publisher: publisher})

	ctx := context.Background()

	flow := domain.Flow{
		ID:   "flow-1",
		Name: "fix tests",
		Steps: []domain.FlowStep{
			{Type: domain.FlowStepTypeToolCall, ServerName: "shell", ToolName: "run_command"},
		},
		CreatedAt: time.Now(),
	}

	require.NoError(t, m.SaveFlow(ctx, flow))

	got, err := m.GetFlow(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, "fix tests", got.Name)

	require.Len(t, publisher.events, 1)
	saved, ok := publisher.events[0].(*domain.FlowSavedEvent)
	require.True(t, ok)
	assert.Equal(t, "flow-1", saved.FlowID)
	assert.Equal(t, 1, saved.StepCount)
}

func TestFlowManager_ListFlowsNewestFirst(t *testing.T) {
	m := NewFlowManager(FlowManagerDeps{Store: storage.NewMemoryStore()})

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, m.SaveFlow(ctx, domain.Flow{ID: "oldest", CreatedAt: base}))
	require.NoError(t, m.SaveFlow(ctx, domain.Flow{ID: "newest", CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, m.SaveFlow(ctx, domain.Flow{ID: "middle", CreatedAt: base.Add(time.Hour)}))

	flows, err := m.ListFlows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 3)
	assert.Equal(t, "newest", flows[0].ID)
	assert.Equal(t, "middle", flows[1].ID)
	assert.Equal(t, "oldest", flows[2].ID)
}

func TestFlowManager_DeleteFlow(t *testing.T) {
	publisher := &capturingPublisher{}
	m := NewFlowManager(FlowManagerDeps{Store: storage.NewMemoryStore(), Publisher: publisher})

	ctx := context.Background()

	require.NoError(t, m.SaveFlow(ctx, domain.Flow{ID: "flow-1"}))

	assert.True(t, m.DeleteFlow(ctx, "flow-1"))
	assert.False(t, m.DeleteFlow(ctx, "flow-1"), "second delete reports absence")

	_, err := m.GetFlow(ctx, "flow-1")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)

	// One save event, one delete event; the second delete publishes nothing.
	require.Len(t, publisher.events, 2)
	assert.Equal(t, domain.FlowDeleted, publisher.events[1].GetType())
}
