package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/todomcp/internal/config"
	"github.com/existflow/todomcp/internal/tools"
	"github.com/spf13/cobra"
)

var (
	toolNameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	toolDescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the operations the server exposes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		// The registry is purely declarative here; no handler runs.
		registry := tools.New(nil, cfg.Owner)
		descriptors := registry.Descriptors()

		fmt.Println(headerStyle.Render(fmt.Sprintf("%d registered tools", len(descriptors))))
		for _, d := range descriptors {
			fmt.Printf("  %s\n    %s\n", toolNameStyle.Render(d.Name), toolDescStyle.Render(d.Description))
		}
		return nil
	},
}
