package crawler

import "errors"

var (
	// ErrMissingElement is returned when a results row lacks a cell, anchor
	// or script the parser needs.
	ErrMissingElement = errors.New("missing element in bulletin row")

	// ErrNoBulletin is returned when a results page has no #bulletion table body.
	ErrNoBulletin = errors.New("bulletin table body not found")
)
