package database

import "errors"

var (
	// ErrNoPath is returned by Open when the database path is empty.
	ErrNoPath = errors.New("database: path is required")

	// ErrMissingDown is returned by MigrateDown when the latest migration has no .down.sql.
	ErrMissingDown = errors.New("database: migration has no down file")
)
