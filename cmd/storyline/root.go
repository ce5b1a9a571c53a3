package main

import (
	"fmt"
	"os"

	"github.com/aretw0/storyline/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storyline",
	Short: "Storyline plays branching visual-novel dialogue written as tables",
	Long: `Storyline builds a story graph from a tabular (CSV-like) script and plays it
in the terminal, over HTTP or as MCP tools for AI agents.

Settings come from storyline.yaml, then STORYLINE_* environment variables,
then flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./storyline.yaml when present)")
	flags.String("log-level", "", "Log level: debug, info, warn, error or off")
	flags.String("store", "", "Save store driver: memory, file, sqlite or redis")
	flags.String("store-path", "", "Directory (file) or database path (sqlite) for saves")
	flags.String("redis-addr", "", "Redis address for the redis store")
	flags.String("marker", "", "Node start marker of the story table")
	flags.String("assets", "", "Directory holding background and character assets")
	flags.Int("slots", 0, "Number of save slots per player")
	flags.Bool("strict", false, "Treat structural warnings in the story as errors")
}

// loadConfig reads the config file and environment, then applies the flags the
// user set explicitly. The first positional argument, when given, is the story.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if len(args) > 0 {
		cfg.Story = args[0]
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("store") {
		cfg.Store.Driver, _ = flags.GetString("store")
	}
	if flags.Changed("store-path") {
		cfg.Store.Path, _ = flags.GetString("store-path")
	}
	if flags.Changed("redis-addr") {
		cfg.Store.RedisAddr, _ = flags.GetString("redis-addr")
	}
	if flags.Changed("marker") {
		cfg.Marker, _ = flags.GetString("marker")
	}
	if flags.Changed("assets") {
		cfg.Assets, _ = flags.GetString("assets")
	}
	if flags.Changed("slots") {
		cfg.Slots, _ = flags.GetInt("slots")
	}
	if flags.Changed("strict") {
		cfg.Strict, _ = flags.GetBool("strict")
	}
	return cfg, cfg.Validate()
}
