package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type migrateCall struct {
	direction string
	dir       string
}

func migrateHarness(t *testing.T, args ...string) (*migrateCall, error) {
	t.Helper()
	t.Setenv("SKIP_DOTENV", "true")

	logger := log.NewLogger(&bytes.Buffer{}, 0)
	var got *migrateCall
	fake := func(_ context.Context, _ *log.Logger, direction, dir string) error {
		got = &migrateCall{direction: direction, dir: dir}
		return nil
	}

	root := &cobra.Command{Use: "cli", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(newMigrateCmdWith(logger, fake))
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	return got, root.Execute()
}

func TestMigrate_DefaultsToUp(t *testing.T) {
	t.Setenv("MIGRATIONS_DIR", "")

	call, err := migrateHarness(t, "migrate")
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, "up", call.direction)
	assert.Empty(t, call.dir)
}

func TestMigrate_DownWithDirFlag(t *testing.T) {
	call, err := migrateHarness(t, "migrate", "down", "--dir", "/srv/migrations")
	require.NoError(t, err)
	assert.Equal(t, &migrateCall{direction: "down", dir: "/srv/migrations"}, call)
}

func TestMigrate_DirFromEnvironment(t *testing.T) {
	t.Setenv("MIGRATIONS_DIR", "/opt/sql")

	call, err := migrateHarness(t, "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "/opt/sql", call.dir)
}

func TestMigrate_RejectsUnknownDirection(t *testing.T) {
	call, err := migrateHarness(t, "migrate", "sideways")
	require.Error(t, err)
	assert.Nil(t, call)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	root := newRootCmd(log.NewLogger(&bytes.Buffer{}, 0))

	migrate, _, err := root.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.Equal(t, "migrate", migrate.Name())

	replay, _, err := root.Find([]string{"replay"})
	require.NoError(t, err)
	assert.Equal(t, "replay-local", replay.Name())
}
