// Package migrations applies the versioned SQL schema with golang-migrate.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/akeren/waitlist-foundry/db"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const defaultMigrationsTable = "schema_migrations"

type migrator interface {
	Up() error
	Down() error
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
}

var sourceFactory = func(fsys fs.FS, path string) (source.Driver, error) {
	return iofs.New(fsys, path)
}

var migratorFactory = func(src source.Driver, driver database.Driver) (migrator, error) {
	return migrate.NewWithInstance("iofs", src, "postgres", driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects the migration files. With Dir empty the schema compiled
// into the binary is used.
type Config struct {
	Dir             string
	MigrationsTable string
	Logger          Logger
}

type direction string

const (
	directionUp   direction = "up"
	directionDown direction = "down"
)

// Up applies every pending migration. ErrNoChange is not an error.
func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	return run(ctx, db, cfg, directionUp)
}

// Down reverts every applied migration.
func Down(ctx context.Context, db *sql.DB, cfg Config) error {
	return run(ctx, db, cfg, directionDown)
}

func (c Config) files() (fs.FS, string, string) {
	if strings.TrimSpace(c.Dir) == "" {
		return db.Migrations, db.MigrationsPath, "embedded"
	}
	return os.DirFS(c.Dir), ".", c.Dir
}

func run(ctx context.Context, sqlDB *sql.DB, cfg Config, dir direction) error {
	if sqlDB == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = defaultMigrationsTable
	}

	fsys, path, origin := cfg.files()
	src, err := sourceFactory(fsys, path)
	if err != nil {
		return fmt.Errorf("migrations: source %s: %w", origin, err)
	}

	driver, err := driverFactory(sqlDB, cfg)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("migrations: postgres driver: %w", err)
	}

	m, err := migratorFactory(src, driver)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("migrations: init: %w", err)
	}
	closeOnce := sync.Once{}
	closeMigrator := func() {
		closeOnce.Do(func() {
			srcErr, dbErr := m.Close()
			if cfg.Logger != nil {
				if srcErr != nil {
					cfg.Logger.Warn("Migrations source close error", "error", srcErr)
				}
				if dbErr != nil {
					cfg.Logger.Warn("Migrations db close error", "error", dbErr)
				}
			}
		})
	}
	defer closeMigrator()

	if cfg.Logger != nil {
		cfg.Logger.Info("Running SQL migrations", "direction", string(dir), "source", origin, "table", cfg.MigrationsTable)
	}

	errCh := make(chan error, 1)
	go func() {
		if dir == directionDown {
			errCh <- m.Down()
			return
		}
		errCh <- m.Up()
	}()

	select {
	case <-ctx.Done():
		// migrate takes no context; closing is the only interruption available.
		closeMigrator()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				if cfg.Logger != nil {
					cfg.Logger.Info("No migrations to apply")
				}
				return nil
			}
			return fmt.Errorf("migrations: %s: %w", dir, err)
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("Migrations applied successfully", "direction", string(dir))
	}
	return nil
}
