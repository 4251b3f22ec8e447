// Package crawler walks the paginated search results of the bulletin for
// one query and fiscal year.
//
// # Components
//
//   - Crawler: discovers the page count for a (query, year) and fetches
//     every page through a Fetcher, usually *session.Session
//   - BulletinParser: the only place that knows the bulletin's markup.
//     It turns a results document into pagination info and TenderRecords
//
// # Failure handling
//
// A page whose markup is missing an expected element yields a
// model.PageResult with OutcomePartial. Rows parsed before the failure are
// kept. By default the remaining pages of that year are skipped; with
// WithContinueOnPageFailure(true) the crawler moves on to the next page.
//
// # Usage
//
//	c := crawler.New(sess, crawler.WithSite(cfg.Site()))
//	result, err := c.CrawlYear(ctx, "台灣電力", 112)
package crawler
