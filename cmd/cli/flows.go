package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podplay/taskgraph/internal/initialization"
	"github.com/podplay/taskgraph/pkg/replayer"
)

func NewFlowsCommand(container *initialization.SessionContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Manage recorded flows",
		Long:  `List, inspect, search, and delete recorded tool-call flows.`,
	}

	cmd.AddCommand(NewFlowsListCommand(container))
	cmd.AddCommand(NewFlowsShowCommand(container))
	cmd.AddCommand(NewFlowsFindCommand(container))
	cmd.AddCommand(NewFlowsDeleteCommand(container))

	return cmd
}

func NewFlowsListCommand(container *initialization.SessionContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored flows, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, err := container.GetFlowManager().ListFlows(cmd.Context())
			if err != nil {
				return err
			}

			if len(flows) == 0 {
				fmt.Println("No flows recorded")
				return nil
			}

			for _, flow := range flows {
				fmt.Printf("%s  %s  (%d steps, project %q, recorded %s)\n",
					flow.ID, flow.Name, len(flow.Steps), flow.Context.Project,
					flow.CreatedAt.Format("2006-01-02 15:04:05"))
			}

			return nil
		},
	}
}

func NewFlowsShowCommand(container *initialization.SessionContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "show <flow-id>",
		Short: "Print a flow and its step statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := container.GetFlowManager().GetFlow(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(flow, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(encoded))

			stats := flow.Statistics()
			fmt.Printf("\n%d steps", stats.TotalSteps)
			for server, count := range stats.StepsByServer {
				fmt.Printf(", %s: %d", server, count)
			}
			fmt.Println()

			return nil
		},
	}
}

func NewFlowsFindCommand(container *initialization.SessionContainer) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "find <task-description>",
		Short: "Find flows matching a task description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matched := container.GetReplayer().FindMatchingFlows(cmd.Context(), replayer.MatchQuery{
				TaskDescription: args[0],
				Project:         project,
			})

			if len(matched) == 0 {
				fmt.Println("No matching flows")
				return nil
			}

			for _, flow := range matched {
				fmt.Printf("%s  %s  (project %q)\n", flow.ID, flow.Name, flow.Context.Project)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Only match flows recorded in this project")

	return cmd
}

func NewFlowsDeleteCommand(container *initialization.SessionContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <flow-id>",
		Short: "Delete a stored flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !container.GetFlowManager().DeleteFlow(cmd.Context(), args[0]) {
				fmt.Printf("Flow %s not found\n", args[0])
				return nil
			}

			fmt.Printf("Deleted flow %s\n", args[0])

			return nil
		},
	}
}
