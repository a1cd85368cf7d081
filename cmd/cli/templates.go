package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podplay/taskgraph/internal/initialization"
	"github.com/podplay/taskgraph/pkg/domain"
	"github.com/podplay/taskgraph/pkg/registry"
)

func NewTemplatesCommand(container *initialization.SessionContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage graph templates",
		Long:  `List, inspect, visualize, and delete stored graph templates.`,
	}

	cmd.AddCommand(NewTemplatesListCommand(container))
	cmd.AddCommand(NewTemplatesShowCommand(container))
	cmd.AddCommand(NewTemplatesVisualizeCommand(container))
	cmd.AddCommand(NewTemplatesDeleteCommand(container))

	return cmd
}

func NewTemplatesListCommand(container *initialization.SessionContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := container.GetGraphRegistry().ListTemplates(cmd.Context())
			if err != nil {
				return err
			}

			if len(templates) == 0 {
				fmt.Println("No templates stored")
				return nil
			}

			for _, template := range templates {
				fmt.Printf("%s  %s  (%d nodes, %d edges)\n",
					template.ID, template.Name, len(template.Nodes), len(template.Edges))
			}

			return nil
		},
	}
}

func findTemplate(cmd *cobra.Command, container *initialization.SessionContainer, id string) (domain.GraphTemplate, error) {
	templates, err := container.GetGraphRegistry().ListTemplates(cmd.Context())
	if err != nil {
		return domain.GraphTemplate{}, err
	}

	for _, template := range templates {
		if template.ID == id {
			return template, nil
		}
	}

	return domain.GraphTemplate{}, fmt.Errorf("template %s: %w", id, domain.ErrTemplateNotFound)
}

func NewTemplatesShowCommand(container *initialization.SessionContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "show <template-id>",
		Short: "Print a template as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := findTemplate(cmd, container, args[0])
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(template, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(encoded))

			return nil
		},
	}
}

func NewTemplatesVisualizeCommand(container *initialization.SessionContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "visualize <template-id>",
		Short: "Render a template as a mermaid flowchart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := findTemplate(cmd, container, args[0])
			if err != nil {
				return err
			}

			graph, err := registry.FromTemplate(template, domain.CapabilityBindings{})
			if err != nil {
				return err
			}

			fmt.Print(graph.Visualize())

			return nil
		},
	}
}

func NewTemplatesDeleteCommand(container *initialization.SessionContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <template-id>",
		Short: "Delete a stored template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !container.GetGraphRegistry().DeleteTemplate(cmd.Context(), args[0]) {
				fmt.Printf("Template %s not found\n", args[0])
				return nil
			}

			fmt.Printf("Deleted template %s\n", args[0])

			return nil
		},
	}
}
