package search

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/fetch"
)

// Endpoint is the search engine URL requested through the proxy.
const Endpoint = "https://www.google.com/search"

const requestTimeout = 30 * time.Second

// EngineParams are the engine-level parameters sent with every query.
type EngineParams struct {
	Engine   string
	Country  string
	Language string
	Results  int
	JSON     bool
}

// DefaultEngineParams requests 20 US English Google results as JSON.
func DefaultEngineParams() EngineParams {
	return EngineParams{Engine: "google", Country: "us", Language: "en", Results: 20, JSON: true}
}

// Values encodes query and p as request parameters.
func (p EngineParams) Values(query string) url.Values {
	v := url.Values{}
	v.Set("q", query)
	if p.Results > 0 {
		v.Set("num", strconv.Itoa(p.Results))
	}
	if p.JSON {
		v.Set("brd_json", "1")
	}
	if p.Country != "" {
		v.Set("brd_countries", p.Country)
	}
	if p.Engine != "" {
		v.Set("brd_engine", p.Engine)
	}
	if p.Language != "" {
		v.Set("brd_language", p.Language)
	}
	return v
}

// Response is the raw reply of one search request.
type Response struct {
	Body       []byte
	StatusCode int
}

// Transport performs one search request.
type Transport interface {
	Fetch(ctx context.Context, query string, params EngineParams) (*Response, error)
}

// ProxyConfig locates the rotating SERP proxy.
type ProxyConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

// ProxyTransport sends searches through a rotating proxy. Every request uses a
// fresh proxy session so consecutive attempts leave from different exits.
type ProxyTransport struct {
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
	cfg      ProxyConfig
	endpoint string
}

// ProxyOption configures a ProxyTransport.
type ProxyOption func(*ProxyTransport)

// WithTransportLogger sets a custom logger.
func WithTransportLogger(logger *slog.Logger) ProxyOption {
	return func(t *ProxyTransport) { t.logger = logger }
}

// WithEndpoint overrides the search endpoint.
func WithEndpoint(u string) ProxyOption {
	return func(t *ProxyTransport) { t.endpoint = u }
}

// WithClock sets the clock used to derive session identifiers.
func WithClock(now func() time.Time) ProxyOption {
	return func(t *ProxyTransport) { t.now = now }
}

// NewProxyTransport creates a transport for cfg.
func NewProxyTransport(cfg ProxyConfig, opts ...ProxyOption) *ProxyTransport {
	t := &ProxyTransport{
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
		endpoint: Endpoint,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.client = &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			Proxy:           t.proxyURL,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // the SERP proxy re-signs TLS traffic
		},
	}
	return t
}

// SessionID returns the proxy session identifier for time now.
func SessionID(now time.Time) string {
	return "session-rand" + strconv.FormatInt(now.Unix(), 10)
}

// ProxyURL returns the proxy URL for a request issued at now.
func (t *ProxyTransport) ProxyURL(now time.Time) *url.URL {
	if t.cfg.Host == "" {
		return nil
	}
	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(t.cfg.User+"-"+SessionID(now), t.cfg.Password),
		Host:   net.JoinHostPort(t.cfg.Host, t.cfg.Port),
	}
}

func (t *ProxyTransport) proxyURL(*http.Request) (*url.URL, error) {
	return t.ProxyURL(t.now()), nil
}

// Fetch performs one search request. Non-200 replies are returned, not treated as errors.
func (t *ProxyTransport) Fetch(ctx context.Context, query string, params EngineParams) (*Response, error) {
	u := t.endpoint + "?" + params.Values(query).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", fetch.UserAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // intentional

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetch.MaxBody))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	t.logger.DebugContext(ctx, "search response", "status", resp.StatusCode, "bytes", len(body))
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
