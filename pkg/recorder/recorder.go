// Package recorder captures live tool-call activity into replayable flows,
// the "muscle memory" of a session.
package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// FlowSaver persists a finished recording. *managers.FlowManager satisfies it.
type FlowSaver interface {
	SaveFlow(ctx context.Context, flow domain.Flow) error
}

// Recorder buffers the tool-call steps of one recording session. There is one
// buffer per recorder, and one recorder per process: starting a new session
// while one is active discards the active buffer and starts fresh.
type Recorder struct {
	saver     FlowSaver
	publisher domain.EventPublisher

	mutex     sync.Mutex
	recording bool
	snapshot  domain.FlowContext
	steps     []domain.FlowStep
}

type RecorderDeps struct {
	Saver     FlowSaver
	Publisher domain.EventPublisher
}

func NewRecorder(deps RecorderDeps) *Recorder {
	return &Recorder{
		saver:     deps.Saver,
		publisher: deps.Publisher,
	}
}

type StartRecordingParams struct {
	TaskDescription string
	Project         string
	Environment     string
}

// StartRecording opens a session with an empty step buffer and a context
// snapshot. An already-active session is reset, not rejected: the abandoned
// buffer is dropped without being persisted.
func (r *Recorder) StartRecording(ctx context.Context, params StartRecordingParams) {
	r.mutex.Lock()

	if r.recording {
		log.Warn().
			Str("abandoned_task", r.snapshot.TaskDescription).
			Msgf("Recording already in progress, resetting buffer with %d steps", len(r.steps))
	}

	r.recording = true
	r.steps = []domain.FlowStep{}
	r.snapshot = domain.FlowContext{
		TaskDescription: params.TaskDescription,
		Project:         params.Project,
		Environment:     params.Environment,
		StartedAt:       time.Now(),
	}

	r.mutex.Unlock()

	log.Info().Str("project", params.Project).Msgf("Recording started for task %q", params.TaskDescription)

	r.publish(ctx, &domain.RecordingStartedEvent{
		TaskDescription: params.TaskDescription,
		Project:         params.Project,
		Timestamp:       time.Now().UnixNano(),
	})
}

func (r *Recorder) IsRecording() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.recording
}

// StepCount reports the current buffer size; zero when idle.
func (r *Recorder) StepCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.steps)
}

type RecordToolCallParams struct {
	ServerName string
	ToolName   string
	Params     map[string]any
	Agent      string
}

// RecordToolCall appends a step to the active session and returns its
// position. Calls while idle are ignored and report ok=false.
func (r *Recorder) RecordToolCall(params RecordToolCallParams) (int, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.recording {
		return 0, false
	}

	r.steps = append(r.steps, domain.FlowStep{
		Type:       domain.FlowStepTypeToolCall,
		ServerName: params.ServerName,
		ToolName:   params.ToolName,
		Params:     params.Params,
		Metadata: domain.StepMetadata{
			Timestamp: time.Now(),
			Agent:     params.Agent,
		},
	})

	return len(r.steps) - 1, true
}

// RecordToolCallResult attaches the live call's result to the step at index.
// Out-of-range indexes and idle sessions are no-ops.
func (r *Recorder) RecordToolCallResult(index int, result any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.recording || index < 0 || index >= len(r.steps) {
		return
	}

	completedAt := time.Now()
	r.steps[index].Result = result
	r.steps[index].Metadata.CompletedAt = &completedAt
}

// StopRecording closes the session. An idle recorder or an empty buffer
// yields no flow and persists nothing. Otherwise the buffer is materialized
// into an immutable flow named after the task description, persisted, and its
// id returned.
func (r *Recorder) StopRecording(ctx context.Context) (string, bool) {
	r.mutex.Lock()

	if !r.recording {
		r.mutex.Unlock()
		return "", false
	}

	steps := r.steps
	snapshot := r.snapshot

	r.recording = false
	r.steps = nil
	r.snapshot = domain.FlowContext{}

	r.mutex.Unlock()

	if len(steps) == 0 {
		log.Info().Msg("Recording stopped with empty buffer, nothing persisted")

		r.publish(ctx, &domain.RecordingStoppedEvent{
			StepCount: 0,
			Timestamp: time.Now().UnixNano(),
		})

		return "", false
	}

	flow := domain.Flow{
		ID:        xid.New().String(),
		Name:      snapshot.TaskDescription,
		Context:   snapshot,
		Steps:     steps,
		CreatedAt: time.Now(),
	}

	if err := r.saver.SaveFlow(ctx, flow); err != nil {
		log.Error().Err(err).Str("flow_id", flow.ID).Msg("Failed to persist recorded flow")
		return "", false
	}

	log.Info().Str("flow_id", flow.ID).Msgf("Recording stopped, persisted flow with %d steps", len(flow.Steps))

	r.publish(ctx, &domain.RecordingStoppedEvent{
		FlowID:    flow.ID,
		StepCount: len(flow.Steps),
		Timestamp: time.Now().UnixNano(),
	})

	return flow.ID, true
}

func (r *Recorder) publish(ctx context.Context, event domain.Event) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.PublishEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("event_type", string(event.GetType())).Msg("Failed to publish recording event")
	}
}
