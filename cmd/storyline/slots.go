package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/storyline/internal/cli"
	"github.com/aretw0/storyline/internal/config"
	"github.com/aretw0/storyline/pkg/ports"
	"github.com/spf13/cobra"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Manage saved games",
	Long:  `List, inspect and remove save records in the configured store.`,
}

var slotsLsCmd = &cobra.Command{
	Use:   "ls [prefix]",
	Short: "List save keys, optionally only those starting with prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SaveStore) error {
			keys, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing saves: %w", err)
			}
			out := cmd.OutOrStdout()
			n := 0
			for _, k := range keys {
				if len(args) > 0 && !strings.HasPrefix(k, args[0]) {
					continue
				}
				fmt.Fprintln(out, "- "+k)
				n++
			}
			if n == 0 {
				fmt.Fprintln(out, "No saves found.")
			}
			return nil
		})
	},
}

var slotsInspectCmd = &cobra.Command{
	Use:   "inspect <key>",
	Short: "Print a save record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SaveStore) error {
			rec, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error loading save '%s': %w", args[0], err)
			}
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("error marshaling save: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var slotsRmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove one or more saves",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SaveStore) error {
			var errs []error
			for _, key := range args {
				if err := store.Delete(cmd.Context(), key); err != nil {
					errs = append(errs, fmt.Errorf("error removing '%s': %w", key, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed save '%s'\n", key)
			}
			return errors.Join(errs...)
		})
	},
}

func init() {
	rootCmd.AddCommand(slotsCmd)
	slotsCmd.AddCommand(slotsLsCmd)
	slotsCmd.AddCommand(slotsInspectCmd)
	slotsCmd.AddCommand(slotsRmCmd)
}

func withStore(cmd *cobra.Command, fn func(ports.SaveStore) error) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cfg.Store.Driver == config.DriverMemory {
		return errors.New("the memory store keeps nothing between runs; pick file, sqlite or redis")
	}
	store, _, closer, err := cli.OpenStore(cfg, cli.NewLogger(cfg.LogLevel))
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}
	return fn(store)
}
