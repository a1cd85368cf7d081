package domain

import "time"

// Flow is a recorded sequence of tool-call steps captured from a live
// session. Append-only while recording, immutable after save except through
// explicit update or delete.
type Flow struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Context   FlowContext `json:"context"`
	Steps     []FlowStep  `json:"steps"`
	CreatedAt time.Time   `json:"createdAt"`
}

// FlowContext is the snapshot taken when recording starts.
type FlowContext struct {
	TaskDescription string    `json:"taskDescription"`
	Project         string    `json:"project"`
	Environment     string    `json:"environment"`
	StartedAt       time.Time `json:"startedAt"`
}

const FlowStepTypeToolCall = "tool_call"

// FlowStep is one recorded tool invocation. The result field is filled in
// after the live call completes, keyed back to the step by position.
type FlowStep struct {
	Type       string         `json:"type"`
	ServerName string         `json:"serverName"`
	ToolName   string         `json:"toolName"`
	Params     map[string]any `json:"params"`
	Result     any            `json:"result,omitempty"`
	Metadata   StepMetadata   `json:"metadata"`
}

type StepMetadata struct {
	Timestamp   time.Time  `json:"timestamp"`
	Agent       string     `json:"agent,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// FlowStatistics aggregates a flow's steps by target.
type FlowStatistics struct {
	TotalSteps    int            `json:"total_steps"`
	StepsByServer map[string]int `json:"steps_by_server"`
	StepsByTool   map[string]int `json:"steps_by_tool"`
}

func (f Flow) Statistics() FlowStatistics {
	stats := FlowStatistics{
		TotalSteps:    len(f.Steps),
		StepsByServer: map[string]int{},
		StepsByTool:   map[string]int{},
	}

	for _, step := range f.Steps {
		stats.StepsByServer[step.ServerName]++
		stats.StepsByTool[step.ServerName+"."+step.ToolName]++
	}

	return stats
}
