// Package aggregate groups tender records from many crawls into one dataset.
//
// Records are loaded from the per-year CSV files (LoadDir) or from the
// SQLite store (FromStore), grouped by exact (title, authority) and sorted
// so that the output is the same for the same input.
package aggregate
