package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/podplay/taskgraph/internal/initialization"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskgraph",
		Short: "Taskgraph workflow CLI",
		Long: `Taskgraph is a workflow graph engine with a record/replay layer: it runs
directed task graphs, stores reusable graph templates, and replays recorded
tool-call flows against the current environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	container, err := initialization.NewSessionContainer(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize session container: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(NewFlowsCommand(container))
	rootCmd.AddCommand(NewTemplatesCommand(container))
	rootCmd.AddCommand(NewReplayCommand(container))
	rootCmd.AddCommand(NewRunCommand(container))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
