package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/pkg/retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	// SSLMode applies when POSTGRES_SSLMODE is unset.
	SSLMode string
}

func DefaultDBConfig() *DBConfig {
	return &DBConfig{
		MaxIdleConns:    5,
		MaxOpenConns:    20,
		ConnMaxLifetime: 5 * time.Minute,
		SSLMode:         "require",
	}
}

// pgEnv holds the POSTGRES_* variables.
type pgEnv struct {
	host, port, user, password, dbName, sslMode string
}

func loadPGEnv() pgEnv {
	get := func(key string) string {
		return sanitizeEnv(GetValueFromEnvironmentVariable(key, ""))
	}
	return pgEnv{
		host:     get("POSTGRES_HOST"),
		port:     get("POSTGRES_PORT"),
		user:     get("POSTGRES_USER"),
		password: get("POSTGRES_PASSWORD"),
		dbName:   get("POSTGRES_DB_NAME"),
		sslMode:  get("POSTGRES_SSLMODE"),
	}
}

func (e pgEnv) missing() []string {
	var missing []string
	for _, v := range []struct{ key, value string }{
		{"POSTGRES_HOST", e.host},
		{"POSTGRES_USER", e.user},
		{"POSTGRES_DB_NAME", e.dbName},
	} {
		if v.value == "" {
			missing = append(missing, v.key)
		}
	}
	return missing
}

// NewDatabase opens the waitlist database. An empty dsn falls back to
// APP_DATABASE_URL and then to the POSTGRES_* variables. The first ping is
// retried with exponential backoff.
func NewDatabase(ctx context.Context, logger *log.Logger, dsn string, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = DefaultDBConfig()
	}

	if strings.TrimSpace(dsn) == "" {
		envDSN, err := buildDSNFromEnv(sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_URL", "")), logger, cfg)
		if err != nil {
			return nil, err
		}
		dsn = envDSN
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	backoff := retry.NewExponentialBackoff(&retry.Config{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	})
	if err := backoff.Execute(ctx, sqlDB.PingContext); err != nil {
		_ = sqlDB.Close()
		logger.Error("Database ping failed", "error", err)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established")
	return gdb, nil
}

func buildDSNFromEnv(appDatabaseURL string, logger *log.Logger, cfg *DBConfig) (string, error) {
	if appDatabaseURL != "" {
		logger.Info("Using APP_DATABASE_URL for database connection")
		return appDatabaseURL, nil
	}

	env := loadPGEnv()
	if missing := env.missing(); len(missing) > 0 {
		return "", fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}

	port := 5432
	if env.port != "" {
		p, err := strconv.Atoi(env.port)
		if err != nil {
			return "", fmt.Errorf("invalid POSTGRES_PORT %q: %w", env.port, err)
		}
		port = p
	}

	sslMode := env.sslMode
	if sslMode == "" {
		sslMode = cfg.SSLMode
	}

	logger.Info("Connecting to database", "host", env.host, "port", port, "dbname", env.dbName, "sslmode", sslMode)
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		env.host, port, env.user, env.password, env.dbName, sslMode), nil
}

// sanitizeEnv trims whitespace and one pair of matching quotes.
func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
		return
	}
	logger.Info("Database closed")
}
