package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"github.com/nao1215/tenderscan/internal/config"
)

const (
	retryWaitTime    = 500 * time.Millisecond
	retryMaxWaitTime = 5 * time.Second
)

// Request phases reported to the Observer.
const (
	PhaseHandshake = "handshake"
	PhaseDiscover  = "discover"
	PhasePage      = "page"
	PhaseOther     = "other"
)

// Observer receives one call per logical request after retries finish.
// status is 0 when no response was received.
type Observer interface {
	ObserveRequest(phase string, status int)
}

// Session is the shared HTTP session for one run.
// It is safe for sequential use; the rate limiter serializes timing but
// callers are expected to issue one request at a time.
type Session struct {
	site           config.Site
	handshakeQuery string
	handshakeYear  int

	client   *resty.Client
	jar      http.CookieJar
	logger   *slog.Logger
	observer Observer

	mu      sync.Mutex
	spacing time.Duration
	limiter *rate.Limiter
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers an Observer for request outcomes.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// New builds a Session from cfg. It does not contact the site; call
// Handshake before fetching pages.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	site := cfg.Site()

	s := &Session{
		site:           site,
		handshakeQuery: cfg.HandshakeQuery,
		handshakeYear:  cfg.HandshakeYear,
		spacing:        site.RequestSpacing,
		limiter:        newLimiter(site.RequestSpacing),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	s.jar = jar

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeaders(site.Headers)
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(cfg.MaxRetries)
	client.SetRetryWaitTime(retryWaitTime)
	client.SetRetryMaxWaitTime(retryMaxWaitTime)
	client.AddRetryCondition(shouldRetry)
	client.SetLogger(&restyLogger{logger: s.logger})
	client.OnBeforeRequest(s.waitTurn)
	client.OnAfterResponse(func(*resty.Client, *resty.Response) error {
		s.rest()
		return nil
	})
	client.AddRetryHook(func(*resty.Response, error) { s.rest() })
	client.OnError(func(*resty.Request, error) { s.rest() })

	if cfg.ProxyAddress != "" {
		transport, err := newProxyTransport(cfg.ProxyAddress)
		if err != nil {
			return nil, err
		}
		client.SetTransport(transport)
	}

	s.client = client
	return s, nil
}

// newLimiter allows one request per spacing interval. A zero spacing
// disables the limit.
func newLimiter(spacing time.Duration) *rate.Limiter {
	if spacing <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(spacing), 1)
}

// waitTurn runs before every attempt, retries included.
func (s *Session) waitTurn(_ *resty.Client, req *resty.Request) error {
	s.mu.Lock()
	limiter := s.limiter
	s.mu.Unlock()
	return limiter.Wait(req.Context())
}

// rest marks the end of an attempt. The next attempt waits a full
// spacing from now, however long the response took to arrive.
func (s *Session) rest() {
	if s.spacing <= 0 {
		return
	}
	limiter := newLimiter(s.spacing)
	limiter.Allow()

	s.mu.Lock()
	s.limiter = limiter
	s.mu.Unlock()
}

// shouldRetry retries server errors, throttling and transport failures.
// Cancellation is never retried.
func shouldRetry(res *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if res == nil {
		return false
	}
	code := res.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// newProxyTransport routes all connections through a SOCKS5 proxy.
func newProxyTransport(address string) (*http.Transport, error) {
	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}

// Site returns the request settings this session was built with.
func (s *Session) Site() config.Site {
	return s.site
}

// Fetch sends one request to the bulletin endpoint and parses the response.
// Both methods send params in the query string; POST has an empty body,
// which is how the search page itself submits.
func (s *Session) Fetch(ctx context.Context, method string, params url.Values) (*goquery.Document, error) {
	req := s.client.R().SetContext(ctx)
	switch method {
	case http.MethodGet, http.MethodPost:
		req.SetQueryParamsFromValues(params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	res, err := req.Execute(method, s.site.Endpoint)
	s.observe(ctx, res, err)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, s.site.Endpoint, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.StatusCode())
	}

	s.logger.Debug("fetched bulletin page",
		"method", method,
		"status", res.StatusCode(),
		"bytes", len(res.Body()),
		"elapsed", res.Time(),
	)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func (s *Session) observe(ctx context.Context, res *resty.Response, err error) {
	if s.observer == nil {
		return
	}
	status := 0
	if err == nil && res != nil {
		status = res.StatusCode()
	}
	s.observer.ObserveRequest(PhaseFrom(ctx), status)
}

// CookieCount returns the number of cookies held for the endpoint.
func (s *Session) CookieCount() int {
	u, err := url.Parse(s.site.Endpoint)
	if err != nil {
		return 0
	}
	return len(s.jar.Cookies(u))
}

type phaseKey struct{}

// WithPhase labels requests made with ctx for the Observer.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

// PhaseFrom returns the phase stored by WithPhase, or PhaseOther.
func PhaseFrom(ctx context.Context) string {
	if phase, ok := ctx.Value(phaseKey{}).(string); ok && phase != "" {
		return phase
	}
	return PhaseOther
}

// restyLogger forwards resty's internal messages to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l *restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (l *restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (l *restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
