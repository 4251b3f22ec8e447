package session

import "errors"

// Handshake errors. Any of these means the endpoint is not serving the
// bulletin search page we expect, so the run cannot continue.
var (
	// ErrUnexpectedSite is returned when the page title does not belong to
	// the e-procurement site.
	ErrUnexpectedSite = errors.New("unexpected site: title does not match")

	// ErrNoStatusMarker is returned when the #checkSearchFailure element is missing.
	ErrNoStatusMarker = errors.New("search status marker not found")

	// ErrStatusMarkerNotBlock is returned when the status marker is not a div.
	ErrStatusMarkerNotBlock = errors.New("search status marker is not a div")

	// ErrStatusMarkerNoStyle is returned when the status marker has no style attribute.
	ErrStatusMarkerNoStyle = errors.New("search status marker has no style")

	// ErrSearchFailed is returned when the status marker is visible, which is
	// how the site reports a rejected search.
	ErrSearchFailed = errors.New("search failed: status marker is visible")

	// ErrNoBulletin is returned when the #bulletion table is missing.
	ErrNoBulletin = errors.New("bulletin table not found")

	// ErrBulletinNotTable is returned when #bulletion is not a table element.
	ErrBulletinNotTable = errors.New("bulletin element is not a table")
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx response after retries.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrUnsupportedMethod is returned when Fetch is called with a method
	// other than GET or POST.
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")
)
