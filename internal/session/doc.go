// Package session owns the single HTTP session used to talk to the
// procurement bulletin.
//
// A Session wraps a resty client with a cookie jar, the browser header set
// from config, bounded retries and a rate limiter that spaces every request
// (retries included) by the configured interval. Handshake performs the
// validation request once per run; the cookies it receives are reused for
// every later page request.
//
// Requests can optionally be routed through a SOCKS5 proxy.
package session
