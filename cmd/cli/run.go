package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podplay/taskgraph/internal/initialization"
	"github.com/podplay/taskgraph/pkg/conditions"
	"github.com/podplay/taskgraph/pkg/domain"
	"github.com/podplay/taskgraph/pkg/engine"
)

func NewRunCommand(container *initialization.SessionContainer) *cobra.Command {
	var publishEvents bool

	cmd := &cobra.Command{
		Use:   "run <template-id>",
		Short: "Instantiate a template and run it",
		Long: `Run reconstructs a graph from a stored template and executes it. Nodes
without a bound capability succeed as no-ops, so running a bare template walks
the graph shape and prints the traversal trace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphRegistry := container.GetGraphRegistry()

			template, err := findTemplate(cmd, container, args[0])
			if err != nil {
				return err
			}

			graph, ok := graphRegistry.CreateGraphFromTemplate(cmd.Context(), template.ID, conditions.BindingsFromTemplate(template))
			if !ok {
				return fmt.Errorf("template %s: %w", args[0], domain.ErrTemplateNotFound)
			}
			defer graphRegistry.DeleteGraph(graph.ID)

			runEngine := engine.NewEngine(engine.EngineDeps{
				Graph:          graph,
				EventPublisher: container.GetEventPublisher(),
				EnableEvents:   publishEvents,
			})

			result := runEngine.Execute(cmd.Context(), nil)

			for _, step := range result.Trace.Steps {
				switch step.Kind {
				case domain.TraceStepKindNode:
					fmt.Printf("node %s  (%s)\n", step.NodeID, step.EndedAt.Sub(step.StartedAt))
				case domain.TraceStepKindEdge:
					fmt.Printf("edge %s -> %s\n", step.From, step.To)
				}
			}

			if result.Status == domain.ExecutionStatusFailed {
				fmt.Printf("Run %s failed at node %s: %v\n", result.ExecutionID, result.FailedNodeID, result.Err)
				return nil
			}

			fmt.Printf("Run %s completed\n", result.ExecutionID)

			return nil
		},
	}

	cmd.Flags().BoolVar(&publishEvents, "events", false, "Publish lifecycle events while running")

	return cmd
}
