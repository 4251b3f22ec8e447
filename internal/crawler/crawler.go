package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/tenderscan/internal/config"
	"github.com/nao1215/tenderscan/internal/model"
	"github.com/nao1215/tenderscan/internal/session"
)

// Fetcher sends one search request and returns the parsed page.
// *session.Session implements it.
type Fetcher interface {
	Fetch(ctx context.Context, method string, params url.Values) (*goquery.Document, error)
}

// Observer receives page and record counts as the crawl progresses.
type Observer interface {
	ObservePage(outcome model.PageOutcome)
	ObserveRecords(kind model.NoticeKind, n int)
}

// YearResult is the outcome of crawling one (query, year).
type YearResult struct {
	Query        string
	Year         int
	PageParam    model.PageParam
	Records      []model.TenderRecord
	PagesFetched int
	PagesFailed  int
}

// Crawler fetches every results page for a query and fiscal year.
type Crawler struct {
	fetcher  Fetcher
	site     config.Site
	parser   *BulletinParser
	logger   *slog.Logger
	observer Observer

	// continueOnPageFailure moves on to the next page after a broken one
	// instead of ending the year.
	continueOnPageFailure bool
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithSite sets the search settings and link origin.
func WithSite(site config.Site) Option {
	return func(c *Crawler) {
		c.site = site
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(c *Crawler) {
		c.observer = o
	}
}

// WithContinueOnPageFailure keeps paging after a page fails to parse.
func WithContinueOnPageFailure(enabled bool) Option {
	return func(c *Crawler) {
		c.continueOnPageFailure = enabled
	}
}

// New creates a Crawler. Without WithSite the default site settings are used.
func New(fetcher Fetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher: fetcher,
		site:    config.NewConfig().Site(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = NewBulletinParser(c.site.Origin)
	return c
}

// CrawlYear discovers the page count for (query, year) and parses every page.
//
// An error is returned only when discovery fails or ctx is done; the
// partial result is still returned in the latter case. Broken pages and
// failed page requests are counted in PagesFailed.
func (c *Crawler) CrawlYear(ctx context.Context, query string, year int) (*YearResult, error) {
	result := &YearResult{
		Query:     query,
		Year:      year,
		PageParam: model.SinglePage,
		Records:   make([]model.TenderRecord, 0),
	}

	base := c.site.SearchParams(query, year)

	doc, err := c.fetcher.Fetch(session.WithPhase(ctx, session.PhaseDiscover), http.MethodPost, base)
	if err != nil {
		return result, fmt.Errorf("failed to discover pages for year %d: %w", year, err)
	}

	param, found := c.parser.PageParam(doc)
	if !found {
		c.logger.Warn("pagination links not found, assuming a single page", "query", query, "year", year)
	}
	result.PageParam = param
	c.logger.Info("page parameters resolved", "query", query, "year", year, "pages", param.Count, "selector", param.Name)

	for page := 1; page <= param.Count; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pr, err := c.fetchPage(ctx, base, param, page)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			pr = model.PageResult{Outcome: model.OutcomePartial, Err: err}
		} else {
			result.PagesFetched++
		}

		c.observe(pr)
		result.Records = append(result.Records, pr.Records...)
		c.logger.Debug("page parsed",
			"year", year,
			"page", page,
			"records", len(pr.Records),
			"outcome", pr.Outcome.String(),
		)

		if pr.Failed() {
			result.PagesFailed++
			c.logger.Warn("page abandoned", "query", query, "year", year, "page", page, "error", pr.Err)
			if !c.continueOnPageFailure {
				break
			}
		}
	}

	return result, nil
}

func (c *Crawler) fetchPage(ctx context.Context, base url.Values, param model.PageParam, page int) (model.PageResult, error) {
	params := cloneValues(base)
	if param.Paginated() {
		params.Set(param.Name, strconv.Itoa(page))
	}

	doc, err := c.fetcher.Fetch(session.WithPhase(ctx, session.PhasePage), http.MethodPost, params)
	if err != nil {
		return model.PageResult{}, fmt.Errorf("page %d: %w", page, err)
	}
	return c.parser.Rows(doc), nil
}

func (c *Crawler) observe(pr model.PageResult) {
	if c.observer == nil {
		return
	}
	c.observer.ObservePage(pr.Outcome)

	counts := make(map[model.NoticeKind]int)
	for _, r := range pr.Records {
		counts[r.Kind]++
	}
	for _, kind := range slices.Sorted(maps.Keys(counts)) {
		c.observer.ObserveRecords(kind, counts[kind])
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = slices.Clone(vs)
	}
	return out
}
