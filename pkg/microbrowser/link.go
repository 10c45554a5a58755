// pkg/microbrowser/link.go
package microbrowser

import (
	"context"
	"net/url"
)

// Link is a hyperlink of a document or microdata item.
type Link struct {
	doc *Document
	el  Element
}

// Rel is the link relation, possibly empty.
func (l *Link) Rel() string {
	rel, _ := l.el.Attribute("rel")
	return rel
}

// Href is the absolute destination, or nil when the link has none or it does
// not resolve.
func (l *Link) Href() *url.URL {
	return ParseLenient(l.el.AbsoluteAttribute("href"))
}

// Follow loads the destination carrying the document's cookies.
func (l *Link) Follow(ctx context.Context) (*Document, error) {
	href := l.Href()
	if href == nil {
		return nil, NewStateError("link has no destination: %s", l.Rel())
	}
	return l.doc.load(ctx, NewGetRequest(href))
}

// Unwrap stores the engine-native link element in target.
func (l *Link) Unwrap(target any) error {
	return l.el.Unwrap(target)
}

func linkSelector(rel string) string {
	q := cssString(rel)
	return "a[rel~=" + q + "], area[rel~=" + q + "], link[rel~=" + q + "]"
}

func findLinks(doc *Document, root Element, rel string) ([]*Link, error) {
	els, err := root.Select(linkSelector(rel))
	if err != nil {
		return nil, err
	}
	links := make([]*Link, 0, len(els))
	for _, el := range els {
		links = append(links, &Link{doc: doc, el: el})
	}
	return links, nil
}

func firstLink(rel string, links []*Link, err error) (*Link, error) {
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, NewNotFoundError("link", rel)
	}
	return links[0], nil
}
