package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file is
	// missing and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrNilRun is returned when SaveYearRun is called without a run.
	ErrNilRun = errors.New("year run is nil")
)
