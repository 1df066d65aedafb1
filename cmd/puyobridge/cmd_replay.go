package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"example.com/puyo-bridge/internal/app"
	"example.com/puyo-bridge/internal/config"
	"example.com/puyo-bridge/internal/journal"
	"example.com/puyo-bridge/internal/puyo"
	"example.com/puyo-bridge/internal/render"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newReplayCmd(configPath *string) *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "replay <game-id>",
		Short: "Draw the journaled frames of a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" {
				return errors.New("replay: REDIS_ADDR is not set")
			}

			rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
			defer rdb.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			log := app.NewLogger(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
			j := journal.New(rdb, cfg.Redis.JournalTTL, log)
			n, err := app.Replay(ctx, j, args[0], puyo.DefaultGeometry, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d frames\n", n)

			if purge {
				if err := j.Delete(ctx, args[0]); err != nil {
					return fmt.Errorf("replay: purge: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "journal of %s purged\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "delete the game's journal after drawing it")
	return cmd
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render [file]",
		Short: "Draw wire frames, one per line, from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("render: %w", err)
				}
				defer f.Close()
				in = f
			}
			if _, err := render.Stream(in, cmd.OutOrStdout(), puyo.DefaultGeometry); err != nil {
				return fmt.Errorf("render: %w", err)
			}
			return nil
		},
	}
}
