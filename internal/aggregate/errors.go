package aggregate

import "errors"

var (
	// ErrMissingColumn is returned when a CSV header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrNotDirectory is returned when the input path is not a directory.
	ErrNotDirectory = errors.New("input path is not a directory")
)
