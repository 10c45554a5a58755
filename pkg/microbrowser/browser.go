// pkg/microbrowser/browser.go
package microbrowser

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Browser is the entry point of a browsing session over one Engine.
// A Browser and the documents it produces are not safe for concurrent use.
type Browser struct {
	engine Engine
	logger *zap.Logger
}

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Browser) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Browser backed by engine.
func New(engine Engine, opts ...Option) *Browser {
	b := &Browser{
		engine: engine,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("microbrowser").With(zap.String("session_id", uuid.New().String()))
	return b
}

// Get loads the document at rawURL, which must be absolute.
func (b *Browser) Get(ctx context.Context, rawURL string) (*Document, error) {
	u, err := ParseStrict(rawURL)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Opening document", zap.String("url", u.String()))
	page, err := b.engine.Open(ctx, u)
	if err != nil {
		return nil, err
	}
	return newDocument(b, page), nil
}

// Wrap returns a Document over a page the engine has already loaded, such as
// one parsed from local markup.
func (b *Browser) Wrap(page Page) *Document {
	return newDocument(b, page)
}
