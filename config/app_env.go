package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/pkg/utils"
	"github.com/joho/godotenv"
)

const (
	AppEnvKey  = "APP_ENV"
	EnvFileKey = "ENV_FILE"
)

// InitializeEnvFile loads the files listed in ENV_FILE (comma separated,
// default ".env"). Variables already set in the process win.
func InitializeEnvFile(logger *log.Logger) {
	if utils.GetEnvBool("SKIP_DOTENV", false) {
		logger.Info("Skipping .env file load (SKIP_DOTENV=true)")
		return
	}

	files := envFiles()
	if err := godotenv.Load(files...); err != nil {
		logger.Warn("No env file loaded", "files", strings.Join(files, ","), "error", err.Error())
		return
	}

	logger.Info("Environment variables loaded", "files", strings.Join(files, ","))
}

func envFiles() []string {
	files := utils.GetEnvList(EnvFileKey)
	if len(files) == 0 {
		return []string{".env"}
	}
	return files
}

func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func GetAppEnv() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(AppEnvKey)))
}

var devLikeEnvs = []string{"", "dev", "development", "local", "test", "testing"}

// ValidateAutoMigrateAllowed rejects --auto-migrate outside development
// environments; production schemas go through `cli migrate`.
func ValidateAutoMigrateAllowed(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))

	for _, allowed := range devLikeEnvs {
		if env == allowed {
			return nil
		}
	}

	return fmt.Errorf("--auto-migrate is not allowed when %s=%q; run `cli migrate` instead", AppEnvKey, env)
}
