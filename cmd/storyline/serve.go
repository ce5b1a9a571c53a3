package main

import (
	"github.com/aretw0/storyline/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [story]",
	Short: "Start the HTTP server",
	Long: `Serves the story as a JSON API with per-player sessions, save slots,
Server-Sent Events for every transition and Prometheus metrics on /metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("port") {
			cfg.Server.Port, _ = flags.GetInt("port")
		}
		if flags.Changed("metrics") {
			cfg.Server.Metrics, _ = flags.GetBool("metrics")
		}
		watch, _ := flags.GetBool("watch")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()
		return cli.RunServe(sc, cfg, cli.ServeOptions{Watch: watch, Version: version()})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the story when the file changes")
}
