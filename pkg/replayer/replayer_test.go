package replayer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podplay/taskgraph/internal/storage"
	"github.com/podplay/taskgraph/pkg/domain"
)

type recordedCall struct {
	ServerName string
	ToolName   string
	Params     map[string]any
}

type fakeInvoker struct {
	calls   []recordedCall
	failOn  string
	failErr error
}

func (f *fakeInvoker) InvokeTool(ctx context.Context, serverName, toolName string, params map[string]any) (any, error) {
	if f.failOn != "" && toolName == f.failOn {
		return nil, f.failErr
	}

	f.calls = append(f.calls, recordedCall{ServerName: serverName, ToolName: toolName, Params: params})

	return "ok", nil
}

type fakeChecker struct {
	existing map[string]bool
	err      error
}

func (f *fakeChecker) ResourceExists(ctx context.Context, serverName, path string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}

	return f.existing[path], nil
}

func toolStep(server, tool, path string) domain.FlowStep {
	return domain.FlowStep{
		Type:       domain.FlowStepTypeToolCall,
		ServerName: server,
		ToolName:   tool,
		Params:     map[string]any{"path": path},
	}
}

func saveFlow(t *testing.T, store domain.FlowStore, flow domain.Flow) {
	t.Helper()
	require.NoError(t, store.SaveFlow(context.Background(), flow))
}

func TestReplayFlow_AllStepsSucceed(t *testing.T) {
	store := storage.NewMemoryStore()
	invoker := &fakeInvoker{}
	checker := &fakeChecker{existing: map[string]bool{"src/main.go": true}}

	saveFlow(t, store, domain.Flow{
		ID:   "flow-1",
		Name: "refactor main",
		Steps: []domain.FlowStep{
			toolStep("filesystem", "read_file", "src/main.go"),
			toolStep("filesystem", "write_file", "src/main_new.go"),
		},
		CreatedAt: time.Now(),
	})

	r := NewReplayer(ReplayerDeps{Flows: store, Invoker: invoker, Checker: checker})

	result := r.ReplayFlow(context.Background(), "flow-1", ReplayOptions{Validate: true})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.StepsExecuted)
	assert.Nil(t, result.FailedStep)
	assert.NotEmpty(t, result.ReplayID)
	require.Len(t, invoker.calls, 2)
	assert.Equal(t, "read_file", invoker.calls[0].ToolName)
}

func TestReplayFlow_WriteToExistingResourceFailsValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	invoker := &fakeInvoker{}
	checker := &fakeChecker{existing: map[string]bool{"config.yaml": true}}

	saveFlow(t, store, domain.Flow{
		ID:    "flow-1",
		Steps: []domain.FlowStep{toolStep("filesystem", "write_file", "config.yaml")},
	})

	r := NewReplayer(ReplayerDeps{Flows: store, Invoker: invoker, Checker: checker})

	result := r.ReplayFlow(context.Background(), "flow-1", ReplayOptions{Validate: true})

	assert.False(t, result.Success)
	require.NotNil(t, result.FailedStep)
	assert.Equal(t, 0, result.FailedStep.Index)
	assert.Contains(t, result.FailedStep.Reason, "already exists")
	assert.Empty(t, invoker.calls, "no tool invocation should be attempted")
}

func TestReplayFlow_ReadOfMissingResourceFailsValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	invoker := &fakeInvoker{}
	checker := &fakeChecker{existing: map[string]bool{}}

	saveFlow(t, store, domain.Flow{
		ID: "flow-1",
		Steps: []domain.FlowStep{
			toolStep("filesystem", "write_file", "notes.md"),
			toolStep("filesystem", "read_file", "missing.md"),
		},
	})

	r := NewReplayer(ReplayerDeps{Flows: store, Invoker: invoker, Checker: checker})

	result := r.ReplayFlow(context.Background(), "flow-1", ReplayOptions{Validate: true})

	assert.False(t, result.Success)
	require.NotNil(t, result.FailedStep)
	assert.Equal(t, 1, result.FailedStep.Index)
	assert.Contains(t, result.FailedStep.Reason, "does not exist")

	// The first step already executed and is not rolled back.
	assert.Equal(t, 1, result.StepsExecuted)
	require.Len(t, invoker.calls, 1)
	assert.Equal(t, "write_file", invoker.calls[0].ToolName)
}

func TestReplayFlow_ValidationDisabledSkipsChecks(t *testing.T) {
	store := storage.NewMemoryStore()
	invoker := &fakeInvoker{}
	checker := &fakeChecker{existing: map[string]bool{"config.yaml": true}}

	saveFlow(t, store, domain.Flow{
		ID:    "flow-1",
		Steps: []domain.FlowStep{toolStep("filesystem", "write_file", "config.yaml")},
	})

	r := NewReplayer(ReplayerDeps{Flows: store, Invoker: invoker, Checker: checker})

	result := r.ReplayFlow(context.Background(), "flow-1", ReplayOptions{Validate: false})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.StepsExecuted)
}

func TestReplayFlow_FailOpenCases(t *testing.T) {
	tests := []struct {
		name    string
		step    domain.FlowStep
		checker domain.ResourceChecker
	}{
		{
			name:    "unknown tool",
			step:    toolStep("shell", "run_command", "whatever"),
			checker: &fakeChecker{},
		},
		{
			name: "no path param",
			step: domain.FlowStep{
				Type:       domain.FlowStepTypeToolCall,
				ServerName: "filesystem",
				ToolName:   "write_file",
				Params:     map[string]any{"content": "x"},
			},
			checker: &fakeChecker{existing: map[string]bool{"": true}},
		},
		{
			name:    "nil checker",
			step:    toolStep("filesystem", "write_file", "config.yaml"),
			checker: nil,
		},
		{
			name:    "checker error",
			step:    toolStep("filesystem", "write_file", "config.yaml"),
			checker: &fakeChecker{err: errors.New("server unreachable")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			invoker := &fakeInvoker{}

			saveFlow(t, store, domain.Flow{ID: "flow-1", Steps: []domain.FlowStep{tt.step}})

			r := NewReplayer(ReplayerDeps{Flows: store, Invoker: invoker, Checker: tt.checker})

			result := r.ReplayFlow(context.Background(), "flow-1", ReplayOptions{Validate: true})

			assert.True(t, result.Success)
			assert.Equal(t, 1, result.StepsExecuted)
		})
	}
}

func TestReplayFlow_ExecutionFailureAborts(t *testing.T) {
	store := storage.NewMemoryStore()
	invoker := &fakeInvoker{failOn: "run_command", failErr: errors.New("exit status 1")}

	saveFlow(t, store, domain.Flow{
		ID: "flow-1",
		Steps: []domain.FlowStep{
			toolStep("filesystem", "read_file", "main.go"),
			{Type: domain.FlowStepTypeToolCall, ServerName: "shell", ToolName: "run_command", Params: map[string]any{"command": "make"}},
			toolStep("filesystem", "read_file", "main.go"),
		},
	})

	r := NewReplayer(ReplayerDeps{Flows: store, Invoker: invoker, Checker: nil})

	result := r.ReplayFlow(context.Background(), "flow-1", ReplayOptions{Validate: true})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.StepsExecuted)
	require.NotNil(t, result.FailedStep)
	assert.Equal(t, 1, result.FailedStep.Index)
	assert.Equal(t, "exit status 1", result.FailedStep.Reason)
	assert.Len(t, invoker.calls, 1)
}

func TestReplayFlow_MissingInvokerFailsStep(t *testing.T) {
	store := storage.NewMemoryStore()

	saveFlow(t, store, domain.Flow{
		ID:    "flow-1",
		Steps: []domain.FlowStep{toolStep("filesystem", "read_file", "main.go")},
	})

	r := NewReplayer(ReplayerDeps{Flows: store, Checker: &fakeChecker{existing: map[string]bool{"main.go": true}}})

	result := r.ReplayFlow(context.Background(), "flow-1", ReplayOptions{Validate: true})

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, domain.ErrToolInvokerUnavailable)
	require.NotNil(t, result.FailedStep)
	assert.Equal(t, 0, result.FailedStep.Index)
}

func TestReplayFlow_UnknownFlowID(t *testing.T) {
	r := NewReplayer(ReplayerDeps{Flows: storage.NewMemoryStore(), Invoker: &fakeInvoker{}})

	result := r.ReplayFlow(context.Background(), "nope", ReplayOptions{Validate: true})

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, domain.ErrFlowNotFound)
	assert.Nil(t, result.FailedStep)
}

func TestFindMatchingFlows(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	flows := []domain.Flow{
		{
			ID:        "old-deploy",
			Context:   domain.FlowContext{TaskDescription: "deploy the app", Project: "app"},
			CreatedAt: base,
		},
		{
			ID:        "new-deploy",
			Context:   domain.FlowContext{TaskDescription: "Deploy to staging", Project: "app"},
			CreatedAt: base.Add(time.Hour),
		},
		{
			ID:        "other-project",
			Context:   domain.FlowContext{TaskDescription: "deploy the site", Project: "website"},
			CreatedAt: base.Add(2 * time.Hour),
		},
		{
			ID:        "unrelated",
			Context:   domain.FlowContext{TaskDescription: "fix the build", Project: "app"},
			CreatedAt: base.Add(3 * time.Hour),
		},
	}

	for _, flow := range flows {
		saveFlow(t, store, flow)
	}

	r := NewReplayer(ReplayerDeps{Flows: store})

	matched := r.FindMatchingFlows(ctx, MatchQuery{TaskDescription: "deploy", Project: "app"})

	require.Len(t, matched, 2)
	assert.Equal(t, "new-deploy", matched[0].ID, "newest match first")
	assert.Equal(t, "old-deploy", matched[1].ID)

	// Without a project constraint all description matches qualify.
	matched = r.FindMatchingFlows(ctx, MatchQuery{TaskDescription: "DEPLOY"})
	assert.Len(t, matched, 3)

	best, ok := r.FindMatchingFlow(ctx, MatchQuery{TaskDescription: "deploy"})
	require.True(t, ok)
	assert.Equal(t, "other-project", best.ID)

	_, ok = r.FindMatchingFlow(ctx, MatchQuery{TaskDescription: "migrate database"})
	assert.False(t, ok)
}
