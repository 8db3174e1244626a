package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akeren/waitlist-foundry/config"
	"github.com/akeren/waitlist-foundry/domain"
	"github.com/akeren/waitlist-foundry/internal/log"
)

func main() {
	autoMigrate := flag.Bool("auto-migrate", false, "apply SQL migrations before serving (development only)")
	flag.BoolVar(autoMigrate, "m", false, "shorthand for -auto-migrate")
	flag.Parse()

	logger := log.NewLoggerWithJSONOutput()
	os.Exit(run(logger, *autoMigrate))
}

func run(logger *log.Logger, autoMigrate bool) int {
	appConfig, err := config.LoadApplicationConfiguration(logger, autoMigrate)
	if err != nil {
		logger.Error("Failed to load application configuration", "error", err)
		return 1
	}
	defer appConfig.Cleanup()

	domain.SetupCoreDomain(appConfig)
	logger.Info("Waitlist server initialized", "mode", appConfig.Selector.Mode())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received", "timeout", appConfig.Config.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Config.ShutdownTimeout)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return 1
	}
	logger.Info("Graceful shutdown completed")
	return 0
}
