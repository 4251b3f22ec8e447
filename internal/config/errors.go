package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoQuery is returned when no search query was given.
	ErrNoQuery = errors.New("no query specified: provide a search sentence")

	// ErrInvalidYearRange is returned when the fiscal year range is empty or non-positive.
	ErrInvalidYearRange = errors.New("invalid year range: start must be positive and not after end")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSpacing is returned when the request spacing is negative.
	ErrInvalidSpacing = errors.New("invalid request spacing: must be non-negative")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retry count: must be non-negative")

	// ErrInvalidPageSize is returned when the page size is not positive.
	ErrInvalidPageSize = errors.New("invalid page size: must be positive")

	// ErrInvalidEndpoint is returned when the endpoint is not an absolute http(s) URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint: must be an absolute http or https URL")

	// ErrInvalidProxyAddress is returned when the proxy is not in host:port form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
