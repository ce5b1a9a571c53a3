package main

import (
	"fmt"

	"github.com/aretw0/storyline/internal/cli"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a starter story and storyline.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		written, err := cli.Scaffold(dir)
		for _, path := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Run 'storyline play' in that directory to try it.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
