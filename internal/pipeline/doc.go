// Package pipeline runs the per-year steps of a fetch.
//
// Each fiscal year of a query becomes a model.YearRun that flows through an
// ordered list of steps: crawl the bulletin, write the year's CSV file, and
// record the outcome in the database. YearRunner drives the years one after
// another over a shared session, because the site expects one outstanding
// request at a time.
package pipeline
