// pkg/microbrowser/chrome/page.go
package chrome

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// submitScript posts the given fields through a transient form so that the
// browser performs a real top-level navigation with a form body.
const submitScript = `(function(action, fields) {
	const form = document.createElement('form');
	form.method = 'POST';
	form.action = action;
	form.enctype = 'application/x-www-form-urlencoded';
	form.style.display = 'none';
	for (const [name, value] of fields) {
		const input = document.createElement('input');
		input.type = 'hidden';
		input.name = name;
		input.value = value;
		form.appendChild(input);
	}
	(document.body || document.documentElement).appendChild(form);
	HTMLFormElement.prototype.submit.call(form);
	return true;
})(%s, %s)`

// page is the tab's state after one navigation.
type page struct {
	engine     *Engine
	url        *url.URL
	base       *url.URL
	root       *cdp.Node
	generation uint64
}

var _ microbrowser.Page = (*page)(nil)

func (p *page) URL() *url.URL { return p.url }

func (p *page) Root() microbrowser.Element {
	return newElement(p, p.root)
}

// Cookies returns the browser's cookies for the page URL.
func (p *page) Cookies() (map[string]string, error) {
	var cookies []*network.Cookie
	err := p.engine.run(context.Background(), p.engine.actionTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{p.url.String()}).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, microbrowser.NewTransportError("cookies", p.url.String(), err)
	}

	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c.Value
	}
	return out, nil
}

func (p *page) Load(ctx context.Context, req *microbrowser.Request) (microbrowser.Page, error) {
	if err := p.checkCurrent(); err != nil {
		return nil, err
	}
	return p.engine.navigate(ctx, req, p)
}

// checkCurrent fails once the tab has navigated past this page.
func (p *page) checkCurrent() error {
	if p.engine.currentGeneration() != p.generation {
		return microbrowser.NewStateError("document is no longer loaded: %s", p.url)
	}
	return nil
}

// navigate performs req in the tab and captures the resulting page. from is
// the page issuing the request, nil for Open; it stays current unless the tab
// actually left it.
func (e *Engine) navigate(ctx context.Context, req *microbrowser.Request, from *page) (*page, error) {
	action, err := navigationAction(req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Navigating",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	runCtx, cancel := combineContext(e.tabCtx, ctx)
	defer cancel()
	runCtx, cancelTimeout := context.WithTimeout(runCtx, e.navigationTimeout)
	defer cancelTimeout()

	resp, err := chromedp.RunResponse(runCtx, action)
	if err != nil {
		e.invalidateIfLeft(from)
		return nil, microbrowser.NewTransportError(req.Method, req.URL.String(), err)
	}
	// The navigation has committed; earlier pages are stale from here on.
	generation := e.nextGeneration()
	if resp != nil && resp.Status >= 400 {
		e.logger.Debug("Request resulted in error status code",
			zap.Int64("status", resp.Status),
			zap.String("url", resp.URL),
		)
	}

	var location, baseURI string
	var roots []*cdp.Node
	err = chromedp.Run(runCtx,
		chromedp.Location(&location),
		chromedp.Evaluate(`document.baseURI`, &baseURI),
		chromedp.Nodes("html", &roots, chromedp.ByQuery),
	)
	if err != nil {
		return nil, microbrowser.NewTransportError(req.Method, req.URL.String(), err)
	}
	if len(roots) == 0 {
		return nil, microbrowser.NewTransportError(req.Method, req.URL.String(),
			fmt.Errorf("document has no root element"))
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, microbrowser.NewTransportError(req.Method, req.URL.String(),
			fmt.Errorf("browser reported invalid location '%s': %w", location, err))
	}
	base, err := url.Parse(baseURI)
	if err != nil || baseURI == "" {
		base = u
	}

	return &page{
		engine:     e,
		url:        u,
		base:       base,
		root:       roots[0],
		generation: generation,
	}, nil
}

// invalidateIfLeft retires from when a failed navigation still moved the tab
// to another document.
func (e *Engine) invalidateIfLeft(from *page) {
	if from == nil || from.generation != e.currentGeneration() {
		return
	}
	var location string
	if err := e.run(context.Background(), e.actionTimeout, chromedp.Location(&location)); err != nil {
		e.logger.Debug("Failed to read location after navigation error", zap.Error(err))
		return
	}
	if location != from.url.String() {
		e.nextGeneration()
	}
}

func navigationAction(req *microbrowser.Request) (chromedp.Action, error) {
	if req.Method != http.MethodPost {
		return chromedp.Navigate(req.URL.String()), nil
	}
	expr, err := submitExpression(req)
	if err != nil {
		return nil, err
	}
	var submitted bool
	return chromedp.Evaluate(expr, &submitted), nil
}

// submitExpression renders submitScript for the action URL and fields of req.
func submitExpression(req *microbrowser.Request) (string, error) {
	fields := make([][2]string, 0, len(req.Params))
	for _, p := range req.Params {
		fields = append(fields, [2]string{p.Name, p.Value})
	}
	action, err := json.Marshal(req.URL.String())
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(submitScript, action, body), nil
}
