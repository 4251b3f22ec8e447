// Package log provides slog handlers that mask sensitive values.
//
// The bulletin site issues a servlet session cookie and WAF cookies on the
// first request. Those travel in request headers and may show up in debug
// output, so every logger built here masks:
//   - Cookie, Set-Cookie and session attributes by key
//   - JSESSIONID and TS* cookie values wherever they appear
//   - Authorization and proxy credentials
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
