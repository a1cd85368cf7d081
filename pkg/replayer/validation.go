package replayer

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// Tool-name classification for precondition checks. Write-type steps must not
// clobber an existing resource; read-type steps must not read a missing one.
// Tools outside both tables validate as a no-op.
var (
	writeTools = map[string]bool{
		"write_file":       true,
		"create_file":      true,
		"create_directory": true,
		"move_file":        true,
	}

	readTools = map[string]bool{
		"read_file":      true,
		"read_text_file": true,
		"list_directory": true,
		"get_file_info":  true,
	}
)

// StepValidator checks a recorded step's precondition against the live
// environment. Every unprovable case validates as ok: unknown tools, steps
// without a path param, a missing checker, and checker errors all fall
// through open rather than blocking the replay.
type StepValidator struct {
	checker domain.ResourceChecker
}

func NewStepValidator(checker domain.ResourceChecker) *StepValidator {
	return &StepValidator{checker: checker}
}

func (v *StepValidator) ValidateStep(ctx context.Context, step domain.FlowStep) (string, bool) {
	if v.checker == nil {
		return "", true
	}

	isWrite := writeTools[step.ToolName]
	isRead := readTools[step.ToolName]

	if !isWrite && !isRead {
		return "", true
	}

	path, ok := step.Params["path"].(string)
	if !ok || path == "" {
		return "", true
	}

	exists, err := v.checker.ResourceExists(ctx, step.ServerName, path)
	if err != nil {
		log.Warn().Err(err).
			Str("server_name", step.ServerName).
			Str("path", path).
			Msg("Resource check failed, treating step as valid")

		return "", true
	}

	if isWrite && exists {
		return "target resource already exists: " + path, false
	}

	if isRead && !exists {
		return "target resource does not exist: " + path, false
	}

	return "", true
}
