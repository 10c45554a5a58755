// pkg/microbrowser/document.go
package microbrowser

import (
	"context"
	"net/url"

	"go.uber.org/zap"
)

// Hypermedia is anything that exposes links by relation.
type Hypermedia interface {
	Link(rel string) (*Link, error)
	Links(rel string) ([]*Link, error)
}

var (
	_ Hypermedia = (*Document)(nil)
	_ Hypermedia = (*MicrodataItem)(nil)
)

// Document is one loaded page. Navigating away produces a new Document; the
// old one stays valid for the headless engine. Forms are created on first
// access and cached for the document's lifetime.
type Document struct {
	browser *Browser
	page    Page
	forms   map[string]*Form
}

func newDocument(b *Browser, page Page) *Document {
	return &Document{
		browser: b,
		page:    page,
		forms:   make(map[string]*Form),
	}
}

// URL is the address relative references resolve against.
func (d *Document) URL() *url.URL {
	return d.page.URL()
}

// Link returns the first link with relation rel.
func (d *Document) Link(rel string) (*Link, error) {
	links, err := d.Links(rel)
	return firstLink(rel, links, err)
}

// Links returns every link with relation rel in document order.
func (d *Document) Links(rel string) ([]*Link, error) {
	return findLinks(d, d.page.Root(), rel)
}

// Form returns the form named name. Repeated calls return the same *Form, so
// control edits and pending parameters persist between them.
func (d *Document) Form(name string) (*Form, error) {
	if form, ok := d.forms[name]; ok {
		return form, nil
	}

	els, err := d.page.Root().Select("form[name=" + cssString(name) + "]")
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, NewNotFoundError("form", name)
	}

	form := newForm(d, els[0], name)
	d.forms[name] = form
	return form, nil
}

// Item returns the first microdata item of the given type.
func (d *Document) Item(itemType string) (*MicrodataItem, error) {
	items, err := d.Items(itemType)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		u, _ := ParseStrict(itemType)
		return nil, NewNotFoundError("item", u.String())
	}
	return items[0], nil
}

// Items returns the microdata items of the given type in document order.
// The type must be an absolute URL.
func (d *Document) Items(itemType string) ([]*MicrodataItem, error) {
	if _, err := ParseStrict(itemType); err != nil {
		return nil, err
	}

	els, err := d.page.Root().Select("[itemscope][itemtype~=" + cssString(itemType) + "]")
	if err != nil {
		return nil, err
	}
	items := make([]*MicrodataItem, 0, len(els))
	for _, el := range els {
		items = append(items, &MicrodataItem{doc: d, el: el})
	}
	return items, nil
}

// Cookies returns a copy of the cookie set carried by requests from this document.
func (d *Document) Cookies() (map[string]string, error) {
	cookies, err := d.page.Cookies()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(cookies))
	for k, v := range cookies {
		out[k] = v
	}
	return out, nil
}

// Cookie returns the value of the named cookie.
func (d *Document) Cookie(name string) (string, error) {
	cookies, err := d.page.Cookies()
	if err != nil {
		return "", err
	}
	value, ok := cookies[name]
	if !ok {
		return "", NewNotFoundError("cookie", name)
	}
	return value, nil
}

// Unwrap stores the engine-native document root in target.
func (d *Document) Unwrap(target any) error {
	return d.page.Root().Unwrap(target)
}

// load issues req from this document. On failure this document is left as it was.
func (d *Document) load(ctx context.Context, req *Request) (*Document, error) {
	logger := d.browser.logger
	logger.Debug("Loading document",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("params", len(req.Params)),
	)

	page, err := d.page.Load(ctx, req)
	if err != nil {
		logger.Debug("Load failed", zap.String("url", req.URL.String()), zap.Error(err))
		return nil, err
	}

	logger.Debug("Document loaded", zap.String("url", page.URL().String()))
	return newDocument(d.browser, page), nil
}
