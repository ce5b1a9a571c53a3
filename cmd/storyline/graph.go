package main

import (
	"fmt"

	"github.com/aretw0/storyline/internal/cli"
	"github.com/aretw0/storyline/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [story]",
	Short: "Export the story graph as a Mermaid diagram",
	Long:  `Builds the story and prints a Mermaid flowchart of its nodes and branches. Missing targets are highlighted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		rt, err := cli.Open(cfg, cli.NewLogger(cfg.LogLevel))
		if err != nil {
			return err
		}
		defer rt.Close()

		g, _, err := rt.LoadGraph(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
