package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newRootCmd builds the command tree. Flags live on the returned commands,
// so each call starts from a clean state.
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ips",
		Short: "Informed Probability Score engine",
		Long: `ips scores social-media market calls against what the market did next.

Each captured post is evaluated over 1h, 4h and 24h windows, persisted, and
rolled up into per-actor and per-asset statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./configs/config.yaml or ./config.yaml)")

	rootCmd.AddCommand(
		newMigrateCmd(&configPath),
		newScoreCmd(&configPath),
		newTimelineCmd(&configPath),
		newTimelineStatsCmd(&configPath),
		newActorStatsCmd(&configPath),
		newAssetStatsCmd(&configPath),
		newRecalcCmd(&configPath),
		newReevaluateCmd(&configPath),
		newEvaluationStatsCmd(&configPath),
	)
	return rootCmd
}
