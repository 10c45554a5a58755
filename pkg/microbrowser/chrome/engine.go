// pkg/microbrowser/chrome/engine.go
package chrome

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

// Defaults used when no option overrides them.
const (
	DefaultNavigationTimeout = 60 * time.Second
	DefaultActionTimeout     = 10 * time.Second
	startupTimeout           = 30 * time.Second
)

// Engine drives one Chromium tab. Commands are serialised; a page stays
// usable until the next navigation of the tab.
type Engine struct {
	logger *zap.Logger

	headless          bool
	execPath          string
	args              []string
	userAgent         string
	ignoreTLSErrors   bool
	proxy             string
	navigationTimeout time.Duration
	actionTimeout     time.Duration

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	mu sync.Mutex
	// generation counts navigations; pages from older generations are stale.
	generation uint64
	closeOnce  sync.Once
}

var _ microbrowser.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHeadless runs the browser without a window. On by default.
func WithHeadless(headless bool) Option {
	return func(e *Engine) { e.headless = headless }
}

// WithExecPath selects the Chromium binary instead of searching for one.
func WithExecPath(path string) Option {
	return func(e *Engine) { e.execPath = path }
}

// WithArgs adds command line flags, written as "--name" or "--name=value".
func WithArgs(args ...string) Option {
	return func(e *Engine) { e.args = append(e.args, args...) }
}

func WithUserAgent(ua string) Option {
	return func(e *Engine) { e.userAgent = ua }
}

func WithIgnoreTLSErrors(ignore bool) Option {
	return func(e *Engine) { e.ignoreTLSErrors = ignore }
}

// WithProxy routes browser traffic through the proxy URL.
func WithProxy(proxy string) Option {
	return func(e *Engine) { e.proxy = proxy }
}

func WithNavigationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.navigationTimeout = d
		}
	}
}

// New launches the browser and opens its tab. Close releases both.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:            zap.NewNop(),
		headless:          true,
		navigationTimeout: DefaultNavigationTimeout,
		actionTimeout:     DefaultActionTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("chrome")

	e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), e.allocatorOptions()...)
	e.tabCtx, e.tabCancel = chromedp.NewContext(e.allocCtx)

	startCtx, cancel := context.WithTimeout(e.tabCtx, startupTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		e.Close()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	e.logger.Debug("Browser launched", zap.Bool("headless", e.headless))
	return e, nil
}

// allocatorOptions assembles the launch flags.
func (e *Engine) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", e.headless),
		chromedp.Flag("ignore-certificate-errors", e.ignoreTLSErrors),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", e.headless),
	)
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}
	if e.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(e.userAgent))
	}
	if e.proxy != "" {
		opts = append(opts, chromedp.ProxyServer(e.proxy))
	}

	for _, arg := range e.args {
		name, value := parseFlag(arg)
		opts = append(opts, chromedp.Flag(name, value))
	}

	// Containers run without a usable sandbox or a large /dev/shm.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	return opts
}

// parseFlag turns "--name=value" into a named flag; a bare "--name" is true.
func parseFlag(arg string) (string, any) {
	name, value, ok := strings.Cut(arg, "=")
	name = strings.TrimPrefix(name, "--")
	if !ok {
		return name, true
	}
	return name, value
}

// Open navigates the tab to u.
func (e *Engine) Open(ctx context.Context, u *url.URL) (microbrowser.Page, error) {
	return e.navigate(ctx, microbrowser.NewGetRequest(u), nil)
}

// Close shuts the tab and the browser process down.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.logger.Debug("Shutting down browser")
		if e.tabCancel != nil {
			e.tabCancel()
		}
		if e.allocCancel != nil {
			e.allocCancel()
			<-e.allocCtx.Done()
		}
	})
	return nil
}

// run executes actions on the tab, bounded by the caller's context and timeout.
func (e *Engine) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(e.tabCtx, ctx)
	defer cancel()
	runCtx, cancelTimeout := context.WithTimeout(runCtx, timeout)
	defer cancelTimeout()
	return chromedp.Run(runCtx, actions...)
}

// combineContext returns a context derived from parent that is also
// cancelled when secondary is.
func combineContext(parent, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// nextGeneration marks a committed navigation and returns its generation.
func (e *Engine) nextGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) currentGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}
