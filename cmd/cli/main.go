package main

import (
	"os"

	"github.com/akeren/waitlist-foundry/config"
	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/spf13/cobra"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "cli",
		Short:         "Maintenance commands for the waitlist service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			config.InitializeEnvFile(logger)
		},
	}

	root.AddCommand(newMigrateCmd(logger), newReplayCmd(logger))
	return root
}
