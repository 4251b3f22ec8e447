package config

import (
	"maps"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/tenderscan/internal/model"
)

// Default configuration values.
// Site constants mirror what the bulletin search page itself sends.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "tenderscan"

	// DefaultEndpoint is the bulletin search endpoint.
	DefaultEndpoint = "https://web.pcc.gov.tw/prkms/tender/common/bulletion/readBulletion"

	// DefaultOrigin is prefixed to relative detail links and sent as Origin.
	DefaultOrigin = "https://web.pcc.gov.tw"

	// DefaultPageSize is the largest page size the bulletin accepts.
	DefaultPageSize = 100

	// DefaultSortColumn orders results by notice date.
	DefaultSortColumn = "TENDER_NOTICE_DATE"

	// DefaultRequestSpacing is the minimum gap between two requests.
	DefaultRequestSpacing = 1500 * time.Millisecond

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of retries after a failed request.
	DefaultMaxRetries = 3

	// DefaultStartYear is the first fiscal year (Minguo) the bulletin covers.
	DefaultStartYear = 88

	// DefaultHandshakeQuery is the demonstration query used to validate the site.
	DefaultHandshakeQuery = "台灣電力"

	// DefaultHandshakeYear is the fiscal year used by the handshake request.
	DefaultHandshakeYear = 88

	// DefaultOutputDir is where per-year CSV files are written.
	DefaultOutputDir = "data"

	// DefaultAggregateFile is the aggregated output file name.
	DefaultAggregateFile = "agg.json"

	// DefaultUserAgent matches a current desktop Chrome.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
)

// Status type filters sent with every search.
const (
	StatusTender = "招標"
	StatusAward  = "決標"
)

// DefaultHeaders returns the browser-like header set the bulletin expects.
// Referer and Origin are filled from the endpoint and origin.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Sec-Ch-Ua":                 `"Not;A=Brand";v="99", "Google Chrome";v="139", "Chromium";v="139"`,
		"Sec-Ch-Ua-Mobile":          "?0",
		"Sec-Ch-Ua-Platform":        `"Windows"`,
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "same-origin",
		"Sec-Fetch-User":            "?1",
		"Upgrade-Insecure-Requests": "1",
		"User-Agent":                DefaultUserAgent,
	}
}

// Config holds every option for a tenderscan run.
// It is built once from flags and the config file, validated, and then
// treated as read-only by the components it is passed to.
type Config struct {
	// Endpoint is the bulletin search URL.
	Endpoint string

	// Origin is the site origin used for the Origin header and for
	// resolving relative detail links.
	Origin string

	// Headers are sent with every request. Referer and Origin are added
	// automatically when absent.
	Headers map[string]string

	// PageSize is the number of rows requested per page.
	PageSize int

	// SortColumn is the bulletin column results are sorted by.
	SortColumn string

	// StatusTypes are the tender status filters sent with every search.
	StatusTypes []string

	// RequestSpacing is the minimum delay between two requests.
	// Zero disables spacing.
	RequestSpacing time.Duration

	// Timeout bounds a single HTTP request attempt.
	Timeout time.Duration

	// MaxRetries is how many times a failed request is retried.
	MaxRetries int

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// Query is the search sentence.
	Query string

	// StartYear and EndYear bound the fiscal years to crawl (Minguo, inclusive).
	StartYear int
	EndYear   int

	// OutputDir receives one CSV file per year.
	OutputDir string

	// ContinueOnPageFailure keeps paging after a page fails to parse.
	// When false the remaining pages of that year are skipped.
	ContinueOnPageFailure bool

	// HandshakeQuery and HandshakeYear drive the validation request.
	HandshakeQuery string
	HandshakeYear  int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit config file path, if any.
	ConfigFilePath string

	// SaveToDB records runs and tenders in the SQLite database.
	SaveToDB bool

	// DBDir is the directory holding the SQLite database.
	DBDir string

	// MetricsFile is an optional Prometheus textfile output path.
	MetricsFile string
}

// NewConfig creates a Config populated with defaults.
// EndYear defaults to the current fiscal year.
func NewConfig() *Config {
	return &Config{
		Endpoint:       DefaultEndpoint,
		Origin:         DefaultOrigin,
		Headers:        DefaultHeaders(),
		PageSize:       DefaultPageSize,
		SortColumn:     DefaultSortColumn,
		StatusTypes:    []string{StatusTender, StatusAward},
		RequestSpacing: DefaultRequestSpacing,
		Timeout:        DefaultTimeout,
		MaxRetries:     DefaultMaxRetries,
		StartYear:      DefaultStartYear,
		EndYear:        model.CurrentEraYear(time.Now()),
		OutputDir:      DefaultOutputDir,
		HandshakeQuery: DefaultHandshakeQuery,
		HandshakeYear:  DefaultHandshakeYear,
		SaveToDB:       true,
		DBDir:          XDGDataDir(),
	}
}

// Site is the immutable view of the request settings handed to the HTTP session.
type Site struct {
	Endpoint       string
	Origin         string
	Headers        map[string]string
	PageSize       int
	SortColumn     string
	StatusTypes    []string
	RequestSpacing time.Duration
}

// Site returns a copy of the request settings. Referer and Origin headers
// are filled in from Endpoint and Origin when not set explicitly.
func (c *Config) Site() Site {
	headers := make(map[string]string, len(c.Headers)+2)
	maps.Copy(headers, c.Headers)
	if _, ok := headers["Referer"]; !ok {
		headers["Referer"] = c.Endpoint
	}
	if _, ok := headers["Origin"]; !ok {
		headers["Origin"] = c.Origin
	}

	return Site{
		Endpoint:       c.Endpoint,
		Origin:         c.Origin,
		Headers:        headers,
		PageSize:       c.PageSize,
		SortColumn:     c.SortColumn,
		StatusTypes:    append([]string(nil), c.StatusTypes...),
		RequestSpacing: c.RequestSpacing,
	}
}

// Search form field names.
const (
	ParamQuery      = "querySentence"
	ParamStatusType = "tenderStatusType"
	ParamSortColumn = "sortCol"
	ParamTimeRange  = "timeRange"
	ParamPageSize   = "pageSize"
)

// SearchParams returns the fixed search form for query in the given fiscal year.
// Both status types are sent as repeated tenderStatusType values.
func (s Site) SearchParams(query string, year int) url.Values {
	v := url.Values{}
	v.Set(ParamQuery, query)
	for _, status := range s.StatusTypes {
		v.Add(ParamStatusType, status)
	}
	v.Set(ParamSortColumn, s.SortColumn)
	v.Set(ParamTimeRange, strconv.Itoa(year))
	v.Set(ParamPageSize, strconv.Itoa(s.PageSize))
	return v
}

// IsFixedParam reports whether name is one of the fixed search form fields.
func IsFixedParam(name string) bool {
	switch name {
	case ParamQuery, ParamStatusType, ParamSortColumn, ParamTimeRange, ParamPageSize:
		return true
	}
	return false
}

// Years returns the fiscal years to crawl in ascending order.
func (c *Config) Years() []int {
	if c.EndYear < c.StartYear {
		return nil
	}
	years := make([]int, 0, c.EndYear-c.StartYear+1)
	for y := c.StartYear; y <= c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// XDGDataDir returns the XDG data directory for tenderscan.
// On Linux: ~/.local/share/tenderscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for tenderscan.
// On Linux: ~/.config/tenderscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Query == "" {
		return ErrNoQuery
	}

	if c.StartYear < 1 || c.EndYear < c.StartYear {
		return ErrInvalidYearRange
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RequestSpacing < 0 {
		return ErrInvalidSpacing
	}

	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}

	if c.PageSize <= 0 {
		return ErrInvalidPageSize
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidEndpoint
	}

	if c.ProxyAddress != "" && !isValidProxyAddress(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}

	return nil
}

// isValidProxyAddress checks for a "host:port" pair with a usable port.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
