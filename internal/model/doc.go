// Package model defines the data structures shared by the crawler,
// aggregator, report writers and database.
//
// The main types are:
//   - TenderRecord: one parsed bulletin row
//   - Date: a calendar date converted from the Minguo era
//   - NoticeKind: tender or award notice, deciding the date column
//   - PageParam and PageResult: pagination and per-page parse outcome
//   - AggregatedGroup: all occurrences of one (title, authority) pair
//   - YearRun: the unit of work for crawling one (query, year)
//
// Types live in their own package so that crawler, aggregate, report and
// database can share them without import cycles.
package model
