package main

import (
	"errors"
	"fmt"
	"sort"

	"example.com/puyo-bridge/internal/app"
	"example.com/puyo-bridge/internal/config"
	"example.com/puyo-bridge/internal/migrate"
	"example.com/puyo-bridge/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the results store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errors.New("migrate: DATABASE_URL is not set")
			}
			return migrate.Up(cfg.Postgres.URL, app.NewLogger(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level))
		},
	}
}

func newStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <bot>",
		Short: "Summarize recorded results of a bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errors.New("stats: DATABASE_URL is not set")
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer pool.Close()

			sum, err := store.NewResultStore(pool).Summary(ctx, args[0])
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bot=%s games=%d plies=%d fallbacks=%d\n", sum.Bot, sum.Games, sum.Plies, sum.Fallbacks)
			results := make([]string, 0, len(sum.Results))
			for r := range sum.Results {
				results = append(results, r)
			}
			sort.Strings(results)
			for _, r := range results {
				label := r
				if label == "" {
					label = "(none)"
				}
				fmt.Fprintf(out, "  %s: %d\n", label, sum.Results[r])
			}
			return nil
		},
	}
}
