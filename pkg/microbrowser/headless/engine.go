// pkg/microbrowser/headless/engine.go
package headless

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/markhobson/microbrowser-sub000/internal/network"
	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

// DefaultMaxRedirects bounds the redirect chain of a single load.
const DefaultMaxRedirects = 10

// DefaultUserAgent is sent unless WithUserAgent overrides it.
const DefaultUserAgent = "microbrowser/1.0"

// Doer sends HTTP requests. The client must not follow redirects itself so
// that cookies set on intermediate hops are seen.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Engine fetches pages over HTTP and parses them without running scripts.
// An Engine is safe for concurrent use; the pages it returns are not.
type Engine struct {
	client       Doer
	logger       *zap.Logger
	maxRedirects int
	userAgent    string
	headers      http.Header
}

var _ microbrowser.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithClient sets the HTTP client. The default is network.NewClient with
// default settings.
func WithClient(client Doer) Option {
	return func(e *Engine) {
		if client != nil {
			e.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxRedirects bounds the number of redirects followed per load.
func WithMaxRedirects(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRedirects = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(e *Engine) {
		if ua != "" {
			e.userAgent = ua
		}
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(e *Engine) {
		for k, v := range headers {
			e.headers.Set(k, v)
		}
	}
}

// New creates a headless Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:       zap.NewNop(),
		maxRedirects: DefaultMaxRedirects,
		userAgent:    DefaultUserAgent,
		headers:      make(http.Header),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		cfg := network.NewDefaultClientConfig()
		cfg.Logger = e.logger
		e.client = network.NewClient(cfg)
	}
	e.logger = e.logger.Named("headless")
	return e
}

// Open loads u with an empty cookie set.
func (e *Engine) Open(ctx context.Context, u *url.URL) (microbrowser.Page, error) {
	return e.fetch(ctx, microbrowser.NewGetRequest(u), nil, "")
}

// Parse builds a page from markup without any network access. Loads issued
// from the page go through the engine's client.
func (e *Engine) Parse(u *url.URL, r io.Reader) (microbrowser.Page, error) {
	return newPage(e, u, r, nil)
}
