// Package replayer re-executes stored flows against the live environment,
// with optional per-step precondition validation.
package replayer

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// FlowSource is the read side of the flow collection. *managers.FlowManager
// satisfies it.
type FlowSource interface {
	GetFlow(ctx context.Context, id string) (domain.Flow, error)
	ListFlows(ctx context.Context) ([]domain.Flow, error)
}

type Replayer struct {
	flows     FlowSource
	invoker   domain.ToolInvoker
	validator *StepValidator
}

type ReplayerDeps struct {
	Flows   FlowSource
	Invoker domain.ToolInvoker
	Checker domain.ResourceChecker
}

func NewReplayer(deps ReplayerDeps) *Replayer {
	return &Replayer{
		flows:     deps.Flows,
		invoker:   deps.Invoker,
		validator: NewStepValidator(deps.Checker),
	}
}

type MatchQuery struct {
	TaskDescription string
	Project         string
}

// FindMatchingFlows scans stored flows for those whose recorded task
// description contains the query (case-insensitive) and, when the query names
// a project, whose recorded project is equal. Results are newest first.
func (r *Replayer) FindMatchingFlows(ctx context.Context, query MatchQuery) []domain.Flow {
	flows, err := r.flows.ListFlows(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list flows for matching")
		return nil
	}

	needle := strings.ToLower(query.TaskDescription)

	matched := make([]domain.Flow, 0, len(flows))

	for _, flow := range flows {
		if !strings.Contains(strings.ToLower(flow.Context.TaskDescription), needle) {
			continue
		}

		if query.Project != "" && flow.Context.Project != query.Project {
			continue
		}

		matched = append(matched, flow)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched
}

// FindMatchingFlow returns the newest matching flow.
func (r *Replayer) FindMatchingFlow(ctx context.Context, query MatchQuery) (domain.Flow, bool) {
	matched := r.FindMatchingFlows(ctx, query)
	if len(matched) == 0 {
		return domain.Flow{}, false
	}

	return matched[0], true
}

type ReplayOptions struct {
	Validate bool
}

type FailedStep struct {
	Index  int             `json:"index"`
	Reason string          `json:"reason"`
	Step   domain.FlowStep `json:"step"`
}

type ReplayResult struct {
	ReplayID      string      `json:"replay_id"`
	FlowID        string      `json:"flow_id"`
	Success       bool        `json:"success"`
	StepsExecuted int         `json:"steps_executed"`
	FailedStep    *FailedStep `json:"failed_step,omitempty"`
	Err           error       `json:"-"`
}

// ReplayFlow runs a stored flow's steps in order. The first invalid or
// failing step aborts the replay; steps already executed stay executed, there
// is no rollback. Success means every step completed.
func (r *Replayer) ReplayFlow(ctx context.Context, flowID string, opts ReplayOptions) ReplayResult {
	result := ReplayResult{
		ReplayID: uuid.New().String(),
		FlowID:   flowID,
	}

	flow, err := r.flows.GetFlow(ctx, flowID)
	if err != nil {
		log.Error().Err(err).Str("flow_id", flowID).Msg("Failed to load flow for replay")

		result.Err = err

		return result
	}

	log.Info().
		Str("replay_id", result.ReplayID).
		Str("flow_id", flow.ID).
		Bool("validate", opts.Validate).
		Msgf("Replaying flow %q with %d steps", flow.Name, len(flow.Steps))

	for i, step := range flow.Steps {
		if step.Type != domain.FlowStepTypeToolCall {
			log.Warn().Int("index", i).Str("type", step.Type).Msg("Skipping step of unknown type")
			continue
		}

		if opts.Validate {
			reason, ok := r.validator.ValidateStep(ctx, step)
			if !ok {
				log.Warn().
					Str("replay_id", result.ReplayID).
					Int("index", i).
					Str("tool_name", step.ToolName).
					Msgf("Step validation failed: %s", reason)

				result.FailedStep = &FailedStep{Index: i, Reason: reason, Step: step}

				return result
			}
		}

		if r.invoker == nil {
			result.Err = domain.ErrToolInvokerUnavailable
			result.FailedStep = &FailedStep{
				Index:  i,
				Reason: domain.ErrToolInvokerUnavailable.Error(),
				Step:   step,
			}

			return result
		}

		if _, err := r.invoker.InvokeTool(ctx, step.ServerName, step.ToolName, step.Params); err != nil {
			log.Error().Err(err).
				Str("replay_id", result.ReplayID).
				Int("index", i).
				Str("server_name", step.ServerName).
				Str("tool_name", step.ToolName).
				Msg("Step execution failed")

			result.FailedStep = &FailedStep{Index: i, Reason: err.Error(), Step: step}

			return result
		}

		result.StepsExecuted++
	}

	result.Success = true

	log.Info().
		Str("replay_id", result.ReplayID).
		Str("flow_id", flow.ID).
		Msgf("Replay completed, %d steps executed", result.StepsExecuted)

	return result
}
