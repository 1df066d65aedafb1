package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd creates the root puyobridge command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "puyobridge",
		Short:         "Bridge between a puyo game API and a frame protocol bot",
		Long:          "puyobridge plays games from an HTTP game provider with a bot process\nthat speaks the length-prefixed frame protocol on stdin and stdout.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file; environment variables override it")

	cmd.AddCommand(
		newRunCmd(&configPath),
		newReplayCmd(&configPath),
		newRenderCmd(),
		newMigrateCmd(&configPath),
		newStatsCmd(&configPath),
	)

	return cmd
}
