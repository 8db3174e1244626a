package main

import (
	"context"
	"fmt"
	"time"

	"github.com/akeren/waitlist-foundry/config"
	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/pkg/migrations"
	"github.com/akeren/waitlist-foundry/pkg/utils"
	"github.com/spf13/cobra"
)

type migrateFunc func(ctx context.Context, logger *log.Logger, direction, dir string) error

func newMigrateCmd(logger *log.Logger) *cobra.Command {
	return newMigrateCmdWith(logger, runMigrate)
}

func newMigrateCmdWith(logger *log.Logger, run migrateFunc) *cobra.Command {
	var (
		dir     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply (or revert) the waitlist schema and exit",
		ValidArgs: []string{"up", "down"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			if dir == "" {
				dir = utils.GetEnvTrimmed("MIGRATIONS_DIR")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return run(ctx, logger, direction, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded set (default $MIGRATIONS_DIR)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "give up after this long")
	return cmd
}

// migrationDSN prefers the waitlist remote URL when it names a postgres
// backend and otherwise lets NewDatabase read APP_DATABASE_URL / POSTGRES_*.
func migrationDSN(logger *log.Logger) (string, error) {
	wc, err := config.LoadWaitlistConfig()
	if err != nil {
		return "", err
	}

	if wc.RemoteDriver != config.RemoteDriverPostgres || !wc.NewSelector().IsRemoteUsable() {
		logger.Info("Waitlist remote is not a usable postgres backend; using database environment variables")
		return "", nil
	}
	return wc.PostgresDSN()
}

func runMigrate(ctx context.Context, logger *log.Logger, direction, dir string) error {
	apply := migrations.Up
	if direction == "down" {
		apply = migrations.Down
	}

	dsn, err := migrationDSN(logger)
	if err != nil {
		return err
	}

	db, err := config.NewDatabase(ctx, logger, dsn, nil)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer config.CloseDatabase(db, logger)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance: %w", err)
	}

	return apply(ctx, sqlDB, migrations.Config{Dir: dir, Logger: logger})
}
