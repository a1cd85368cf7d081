package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podplay/taskgraph/internal/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()

			fmt.Printf("taskgraph %s\n", version.GetShortVersion())
			fmt.Printf("  go version: %s\n", info.GoVersion)
			fmt.Printf("  platform:   %s\n", info.Platform)
			if info.BuildDate != "" {
				fmt.Printf("  built:      %s\n", info.BuildDate)
			}
		},
	}
}
