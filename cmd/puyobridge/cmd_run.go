package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"example.com/puyo-bridge/internal/app"
	"example.com/puyo-bridge/internal/config"
	"github.com/spf13/cobra"
)

func newRunCmd(configPath *string) *cobra.Command {
	var (
		autojoin bool
		games    int
		name     string
	)

	cmd := &cobra.Command{
		Use:   "run <command> <url> [-- bot args...]",
		Short: "Play games with a bot until interrupted",
		Long:  "Join or create games on the provider at <url> and play them with the bot\nstarted from <command>. A new bot process is started for every game.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			cfg.Bot.Command = args[0]
			cfg.API.URL = args[1]
			if len(args) > 2 {
				cfg.Bot.Args = args[2:]
			}
			if cmd.Flags().Changed("autojoin") {
				cfg.Bot.AutoJoin = autojoin
			}
			if name != "" {
				cfg.Bot.Name = name
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			log := app.NewLogger(os.Stderr, cfg.Log.Format, cfg.Log.Level)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log, app.Options{Games: games})
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&autojoin, "autojoin", false, "join the first open game instead of creating one")
	cmd.Flags().IntVarP(&games, "games", "n", 0, "stop after this many games (0 plays forever)")
	cmd.Flags().StringVar(&name, "name", "", "name shown to the provider (default puyoai-<command>)")
	return cmd
}
