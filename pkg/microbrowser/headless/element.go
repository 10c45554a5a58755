// pkg/microbrowser/headless/element.go
package headless

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

// element wraps a single-node selection of a page.
type element struct {
	page *page
	sel  *goquery.Selection
}

var _ microbrowser.Element = (*element)(nil)

func (e *element) node() *html.Node { return e.sel.Nodes[0] }

func (e *element) TagName() string {
	n := e.node()
	if n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

func (e *element) Attribute(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *element) AbsoluteAttribute(name string) string {
	raw, ok := e.sel.Attr(name)
	if !ok {
		return ""
	}
	return microbrowser.ResolveReference(e.page.base, raw)
}

func (e *element) Text() string {
	return strings.Join(strings.Fields(htmlquery.InnerText(e.node())), " ")
}

func (e *element) Select(selector string) ([]microbrowser.Element, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, microbrowser.NewArgumentError("invalid selector %q: %v", selector, err)
	}

	var els []microbrowser.Element
	e.sel.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
		els = append(els, &element{page: e.page, sel: s})
	})
	return els, nil
}

func (e *element) Value() string {
	if e.TagName() == "textarea" {
		return e.sel.Text()
	}
	value, _ := e.sel.Attr("value")
	return value
}

func (e *element) SetValue(value string) error {
	if e.TagName() == "textarea" {
		e.sel.SetText(value)
		return nil
	}
	e.sel.SetAttr("value", value)
	return nil
}

func (e *element) Selected() bool {
	_, ok := e.sel.Attr("checked")
	return ok
}

func (e *element) SetSelected(selected bool) error {
	if selected {
		e.sel.SetAttr("checked", "checked")
	} else {
		e.sel.RemoveAttr("checked")
	}
	return nil
}

// Unwrap accepts **goquery.Selection, **html.Node and, for the document
// root, **goquery.Document.
func (e *element) Unwrap(target any) error {
	switch t := target.(type) {
	case **goquery.Selection:
		*t = e.sel
	case **html.Node:
		*t = e.node()
	case **goquery.Document:
		if e.node() != e.page.doc.Nodes[0] {
			return microbrowser.NewArgumentError("only the document root unwraps to %T", target)
		}
		*t = e.page.doc
	default:
		return microbrowser.NewArgumentError("unsupported unwrap target: %T", target)
	}
	return nil
}
