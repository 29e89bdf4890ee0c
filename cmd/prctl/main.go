// Command prctl is the operator tool for personal records: it recomputes the
// PRs of a stored workout and prints the PRs of a user.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2beens/fitnesstracker/internal"
	"github.com/2beens/fitnesstracker/internal/config"
	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/ingest"
	"github.com/2beens/fitnesstracker/internal/logging"
	"github.com/2beens/fitnesstracker/internal/telemetry/metrics"
	"github.com/2beens/fitnesstracker/internal/workouts"
)

// storeOpener opens the document store for a loaded config. The returned
// func releases it.
type storeOpener func(ctx context.Context, cfg *config.Config) (docstore.Store, func(), error)

func openConfiguredStore(ctx context.Context, cfg *config.Config) (docstore.Store, func(), error) {
	store, dbPool, err := internal.OpenStore(ctx, internal.OpenStoreParams{
		Config:           cfg,
		PostgresPassword: os.Getenv("FITNESS_POSTGRES_PASS"),
	})
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Errorf("close store: %s", err)
		}
		if dbPool != nil {
			dbPool.Close()
		}
	}, nil
}

type rootOptions struct {
	env        string
	configPath string
	logLevel   string
}

func newRootCmd(open storeOpener, out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "prctl",
		Short:         "prctl - personal records maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logging.Setup(logging.LoggerSetupParams{
				LogToStdout: true,
				LogLevel:    opts.logLevel,
			})
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "development", "environment [prod | production | dev | development]")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "./config.toml", "path for the TOML config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level")
	rootCmd.SetOut(out)

	rootCmd.AddCommand(
		newRecomputeCmd(opts, open),
		newPRsCmd(opts, open),
	)
	return rootCmd
}

func withStore(cmd *cobra.Command, opts *rootOptions, open storeOpener, fn func(ctx context.Context, store docstore.Store) error) error {
	cfg, err := config.Load(opts.env, opts.configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeStore, err := open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	return fn(ctx, store)
}

func newRecomputeCmd(opts *rootOptions, open storeOpener) *cobra.Command {
	var userID, workoutID string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Re-run PR detection over the exercises of a stored workout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" || workoutID == "" {
				return errors.New("--user and --workout are required")
			}
			return withStore(cmd, opts, open, func(ctx context.Context, store docstore.Store) error {
				repo := workouts.NewRepo(store)
				processor := ingest.NewProcessor(
					ingest.NewPRRepo(store),
					metrics.NewManager("fitness", "prctl", prometheus.NewRegistry()),
				)
				service := workouts.NewService(repo, repo, processor)

				result, err := service.RecomputePRs(ctx, userID, workoutID)
				if err != nil {
					return fmt.Errorf("recompute workout %s: %w", workoutID, err)
				}
				summary := workouts.Summarize(workoutID, result)
				log.Infof("workout [%s]: %d exercises, %d PRs written", workoutID, summary.Exercises, summary.PRsWritten)
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&workoutID, "workout", "", "workout id")
	return cmd
}

func newPRsCmd(opts *rootOptions, open storeOpener) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "prs",
		Short: "Print the personal records of a user as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			return withStore(cmd, opts, open, func(ctx context.Context, store docstore.Store) error {
				prs, err := ingest.NewPRRepo(store).ListPRs(ctx, userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), prs)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	return cmd
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd(openConfiguredStore, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "prctl:", err)
		os.Exit(1)
	}
}
