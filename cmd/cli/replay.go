package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podplay/taskgraph/internal/initialization"
	"github.com/podplay/taskgraph/pkg/replayer"
)

func NewReplayCommand(container *initialization.SessionContainer) *cobra.Command {
	var noValidate bool

	cmd := &cobra.Command{
		Use:   "replay <flow-id>",
		Short: "Replay a recorded flow against the current environment",
		Long: `Replay re-executes a stored flow's tool calls in order through the MCP
gateway. Each step is validated against the live environment first unless
--no-validate is given; the first invalid or failing step aborts the replay
without rolling back the steps already executed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := container.GetReplayer().ReplayFlow(cmd.Context(), args[0], replayer.ReplayOptions{
				Validate: !noValidate,
			})

			if result.Err != nil && result.FailedStep == nil {
				return result.Err
			}

			if result.Success {
				fmt.Printf("Replay %s succeeded: %d steps executed\n", result.ReplayID, result.StepsExecuted)
				return nil
			}

			fmt.Printf("Replay %s failed at step %d (%s.%s): %s\n",
				result.ReplayID,
				result.FailedStep.Index,
				result.FailedStep.Step.ServerName,
				result.FailedStep.Step.ToolName,
				result.FailedStep.Reason)
			fmt.Printf("%d steps executed before the failure; executed steps are not rolled back\n",
				result.StepsExecuted)

			return nil
		},
	}

	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip per-step precondition validation")

	return cmd
}
