package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/storyline/internal/cli"
	"github.com/aretw0/storyline/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [story]",
	Short: "Check the story for consistency",
	Long: `Builds the story, walks it from the root node and reports broken links,
unreachable nodes and, with --assets, backgrounds or characters that have no file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		// Report every structural warning instead of stopping at the first.
		strict := cfg.Strict
		cfg.Strict = false

		rt, err := cli.Open(cfg, cli.NewLogger(cfg.LogLevel))
		if err != nil {
			return err
		}
		defer rt.Close()

		g, diags, err := rt.LoadGraph(cmd.Context())
		if err != nil {
			return err
		}
		report, err := validator.ValidateGraph(g, rt.Assets())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, d := range diags {
			fmt.Fprintf(out, "warning: %v\n", d)
		}
		for _, id := range report.Unreachable {
			fmt.Fprintf(out, "unreachable: %s\n", id)
		}
		fmt.Fprintf(out, "%d nodes, %d endings\n", g.Len(), len(report.Endings))

		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if strict && len(diags) > 0 {
			return errors.New("validation failed: strict mode and the story has warnings")
		}
		fmt.Fprintln(out, "Story is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
