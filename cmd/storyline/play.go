package main

import (
	"github.com/aretw0/storyline/internal/cli"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [story]",
	Short: "Play a story in the terminal",
	Long: `Plays the story interactively. Press enter to advance, type a number to
answer a question, and ? for the list of commands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		player, _ := cmd.Flags().GetString("session")
		slot, _ := cmd.Flags().GetInt("load")
		watch, _ := cmd.Flags().GetBool("watch")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		err = cli.RunPlay(sc, cfg, cli.PlayOptions{
			Player:   player,
			LoadSlot: slot,
			Watch:    watch,
			Version:  version(),
			In:       cmd.InOrStdin(),
			Out:      cmd.OutOrStdout(),
		})
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().String("session", "", "Player id that owns the save slots (empty for local saves)")
	playCmd.Flags().Int("load", -1, "Resume from this save slot instead of the beginning")
	playCmd.Flags().BoolP("watch", "w", false, "Reload the story when the file changes")

	rootCmd.Args = playCmd.Args
	rootCmd.RunE = playCmd.RunE
	rootCmd.Flags().AddFlagSet(playCmd.Flags())
}
