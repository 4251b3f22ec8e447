// Package database provides SQLite-based storage for tenderscan.
//
// TenderDB keeps a history of fetch runs so that repeated crawls of the same
// query can be compared and re-aggregated without touching the network:
//   - crawl_runs: one row per fetch invocation
//   - year_results: one row per (run, fiscal year) with page counts and status
//   - tenders: every distinct record seen for a query, keyed by a content
//     fingerprint, with the runs that first and last saw it
//
// The driver is modernc.org/sqlite, so the binary stays CGO-free.
package database
