package recorder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podplay/taskgraph/pkg/domain"
)

type fakeSaver struct {
	flows []domain.Flow
	err   error
}

func (s *fakeSaver) SaveFlow(ctx context.Context, flow domain.Flow) error {
	if s.err != nil {
		return s.err
	}

	s.flows = append(s.flows, flow)

	return nil
}

type capturingPublisher struct {
	events []domain.Event
}

func (p *capturingPublisher) PublishEvent(ctx context.Context, event domain.Event) error {
	p.events = append(p.events, event)
	return nil
}

func TestRecorder_RecordAndStop(t *testing.T) {
	saver := &fakeSaver{}
	publisher := &capturingPublisher{}

	r := NewRecorder(RecorderDeps{Saver: saver, Publisher: publisher})

	ctx := context.Background()

	r.StartRecording(ctx, StartRecordingParams{
		TaskDescription: "fix login bug",
		Project:         "webapp",
		Environment:     "darwin/arm64",
	})

	assert.True(t, r.IsRecording())

	readIdx, ok := r.RecordToolCall(RecordToolCallParams{
		ServerName: "filesystem",
		ToolName:   "read_file",
		Params:     map[string]any{"path": "auth/login.go"},
		Agent:      "assistant",
	})
	require.True(t, ok)
	assert.Equal(t, 0, readIdx)

	writeIdx, ok := r.RecordToolCall(RecordToolCallParams{
		ServerName: "filesystem",
		ToolName:   "write_file",
		Params:     map[string]any{"path": "auth/login.go", "content": "..."},
	})
	require.True(t, ok)
	assert.Equal(t, 1, writeIdx)

	r.RecordToolCallResult(readIdx, "package auth")

	flowID, ok := r.StopRecording(ctx)
	require.True(t, ok)
	assert.NotEmpty(t, flowID)
	assert.False(t, r.IsRecording())

	require.Len(t, saver.flows, 1)

	flow := saver.flows[0]
	assert.Equal(t, flowID, flow.ID)
	assert.Equal(t, "fix login bug", flow.Name)
	assert.Equal(t, "webapp", flow.Context.Project)
	require.Len(t, flow.Steps, 2)
	assert.Equal(t, "package auth", flow.Steps[0].Result)
	require.NotNil(t, flow.Steps[0].Metadata.CompletedAt)
	assert.Nil(t, flow.Steps[1].Metadata.CompletedAt)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, domain.RecordingStarted, publisher.events[0].GetType())
	assert.Equal(t, domain.RecordingStopped, publisher.events[1].GetType())

	stopped, isStopped := publisher.events[1].(*domain.RecordingStoppedEvent)
	require.True(t, isStopped)
	assert.Equal(t, flowID, stopped.FlowID)
	assert.Equal(t, 2, stopped.StepCount)
}

func TestRecorder_IgnoresCallsWhileIdle(t *testing.T) {
	r := NewRecorder(RecorderDeps{Saver: &fakeSaver{}})

	_, ok := r.RecordToolCall(RecordToolCallParams{ServerName: "filesystem", ToolName: "read_file"})
	assert.False(t, ok)

	r.RecordToolCallResult(0, "ignored")

	flowID, ok := r.StopRecording(context.Background())
	assert.False(t, ok)
	assert.Empty(t, flowID)
}

func TestRecorder_EmptyBufferPersistsNothing(t *testing.T) {
	saver := &fakeSaver{}
	r := NewRecorder(RecorderDeps{Saver: saver})

	ctx := context.Background()

	r.StartRecording(ctx, StartRecordingParams{TaskDescription: "noop task"})

	flowID, ok := r.StopRecording(ctx)
	assert.False(t, ok)
	assert.Empty(t, flowID)
	assert.Empty(t, saver.flows)
	assert.False(t, r.IsRecording())
}

func TestRecorder_RestartResetsBuffer(t *testing.T) {
	saver := &fakeSaver{}
	r := NewRecorder(RecorderDeps{Saver: saver})

	ctx := context.Background()

	r.StartRecording(ctx, StartRecordingParams{TaskDescription: "first task"})

	_, ok := r.RecordToolCall(RecordToolCallParams{ServerName: "filesystem", ToolName: "read_file"})
	require.True(t, ok)

	r.StartRecording(ctx, StartRecordingParams{TaskDescription: "second task"})
	assert.Equal(t, 0, r.StepCount())

	_, ok = r.RecordToolCall(RecordToolCallParams{ServerName: "shell", ToolName: "run_command"})
	require.True(t, ok)

	_, ok = r.StopRecording(ctx)
	require.True(t, ok)

	require.Len(t, saver.flows, 1)
	assert.Equal(t, "second task", saver.flows[0].Name)
	require.Len(t, saver.flows[0].Steps, 1)
	assert.Equal(t, "run_command", saver.flows[0].Steps[0].ToolName)
}

func TestRecorder_ResultIndexOutOfRange(t *testing.T) {
	saver := &fakeSaver{}
	r := NewRecorder(RecorderDeps{Saver: saver})

	ctx := context.Background()

	r.StartRecording(ctx, StartRecordingParams{TaskDescription: "task"})

	idx, ok := r.RecordToolCall(RecordToolCallParams{ServerName: "filesystem", ToolName: "read_file"})
	require.True(t, ok)

	r.RecordToolCallResult(idx+5, "lost")
	r.RecordToolCallResult(-1, "lost")

	_, ok = r.StopRecording(ctx)
	require.True(t, ok)
	assert.Nil(t, saver.flows[0].Steps[0].Result)
}

func TestRecorder_SaveFailureReturnsNotOK(t *testing.T) {
	saver := &fakeSaver{err: errors.New("disk full")}
	r := NewRecorder(RecorderDeps{Saver: saver})

	ctx := context.Background()

	r.StartRecording(ctx, StartRecordingParams{TaskDescription: "task"})

	_, ok := r.RecordToolCall(RecordToolCallParams{ServerName: "filesystem", ToolName: "write_file"})
	require.True(t, ok)

	flowID, ok := r.StopRecording(ctx)
	assert.False(t, ok)
	assert.Empty(t, flowID)
	assert.False(t, r.IsRecording())
}
