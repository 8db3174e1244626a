package main

import (
	"context"
	"fmt"
	"time"

	"github.com/akeren/waitlist-foundry/config"
	"github.com/akeren/waitlist-foundry/domain"
	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/spf13/cobra"
)

func newReplayCmd(logger *log.Logger) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:     "replay-local",
		Aliases: []string{"replay"},
		Short:   "Push entries captured in the local store to the remote backend",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runReplayLocal(ctx, cmd, logger)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "give up after this long")
	return cmd
}

func runReplayLocal(ctx context.Context, cmd *cobra.Command, logger *log.Logger) error {
	appConfig, err := config.LoadApplicationConfiguration(logger, false)
	if err != nil {
		return err
	}
	defer appConfig.Cleanup()

	replayer, err := domain.NewWaitlistServiceFactory(appConfig).CreateReplayer()
	if err != nil {
		return err
	}

	ctx, correlationID := log.ContextWithCorrelationID(ctx, "")
	ctx = log.ContextWithLogger(ctx, logger)
	logger.Info("Replaying local waitlist entries", "correlation_id", correlationID)

	report, err := replayer.Replay(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "replayed %d of %d local entries (%d failed)\n", report.Replayed, report.Total, report.Failed)
	return err
}
