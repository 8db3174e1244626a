// Package db carries the SQL schema for the remote waitlist table.
package db

import "embed"

// MigrationsPath is the directory inside Migrations holding the SQL files.
const MigrationsPath = "migrations"

//go:embed migrations/*.sql
var Migrations embed.FS
