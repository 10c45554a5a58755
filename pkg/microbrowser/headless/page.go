// pkg/microbrowser/headless/page.go
package headless

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

// page is a parsed document. Control edits mutate the parsed tree; nothing
// else changes after parsing.
type page struct {
	engine  *Engine
	url     *url.URL
	base    *url.URL
	doc     *goquery.Document
	cookies map[string]string
}

var _ microbrowser.Page = (*page)(nil)

func newPage(e *Engine, u *url.URL, r io.Reader, cookies map[string]string) (*page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from '%s': %w", u, err)
	}
	if cookies == nil {
		cookies = make(map[string]string)
	}

	p := &page{
		engine:  e,
		url:     u,
		base:    baseURL(u, doc),
		doc:     doc,
		cookies: cookies,
	}
	normalizeRadios(doc)
	return p, nil
}

// baseURL honours the first <base href> of the document.
func baseURL(u *url.URL, doc *goquery.Document) *url.URL {
	if len(doc.Nodes) == 0 {
		return u
	}
	n := htmlquery.FindOne(doc.Nodes[0], "//base[@href]")
	if n == nil {
		return u
	}
	href := strings.TrimSpace(htmlquery.SelectAttr(n, "href"))
	ref, err := url.Parse(href)
	if err != nil || href == "" {
		return u
	}
	return u.ResolveReference(ref)
}

type radioKey struct {
	form *html.Node
	name string
}

type checkedRadio struct {
	key radioKey
	sel *goquery.Selection
}

// normalizeRadios leaves at most one checked radio per name in each form,
// the last one in document order. Radios outside any form group together.
func normalizeRadios(doc *goquery.Document) {
	last := make(map[radioKey]*goquery.Selection)
	var checked []checkedRadio

	doc.Find("input[name][checked]").Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !strings.EqualFold(strings.TrimSpace(typ), "radio") {
			return
		}
		name, _ := s.Attr("name")
		key := radioKey{name: name}
		if form := s.Closest("form"); form.Length() > 0 {
			key.form = form.Nodes[0]
		}
		last[key] = s
		checked = append(checked, checkedRadio{key: key, sel: s})
	})

	for _, r := range checked {
		if last[r.key] != r.sel {
			r.sel.RemoveAttr("checked")
		}
	}
}

func (p *page) URL() *url.URL { return p.url }

func (p *page) Root() microbrowser.Element {
	return &element{page: p, sel: p.doc.Selection}
}

// Cookies returns the page's cookie set. Callers must not modify it.
func (p *page) Cookies() (map[string]string, error) {
	return p.cookies, nil
}

func (p *page) Load(ctx context.Context, req *microbrowser.Request) (microbrowser.Page, error) {
	return p.engine.fetch(ctx, req, p.cookies, p.url.String())
}
