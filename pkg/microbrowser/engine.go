// pkg/microbrowser/engine.go
package microbrowser

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Engine loads the first page of a browsing session. The headless and chrome
// packages provide the two implementations.
type Engine interface {
	Open(ctx context.Context, u *url.URL) (Page, error)
}

// Page is one loaded document as seen by an engine. A page never changes URL;
// every navigation yields a new Page.
type Page interface {
	// URL is the address used to resolve relative references.
	URL() *url.URL
	// Root is the document element.
	Root() Element
	// Cookies returns the cookie set that requests from this page carry.
	Cookies() (map[string]string, error)
	// Load issues req from this page and returns the resulting page.
	Load(ctx context.Context, req *Request) (Page, error)
}

// Element is one element of a loaded page. Value and selection methods only
// have meaning for form controls.
type Element interface {
	// TagName is the lower-case element name.
	TagName() string
	Attribute(name string) (string, bool)
	// AbsoluteAttribute resolves the attribute against the page URL, or
	// returns the empty string.
	AbsoluteAttribute(name string) string
	// Text is the whitespace-normalised text content.
	Text() string
	// Select returns the descendants matching a CSS selector in document order.
	Select(selector string) ([]Element, error)

	// Value is the control's current value: the textarea content or the
	// value attribute (or live property).
	Value() string
	SetValue(value string) error
	// Selected reports the checked state of a checkbox or radio.
	Selected() bool
	SetSelected(selected bool) error

	// Unwrap stores the engine-native object in target, which must point to
	// the engine's native type.
	Unwrap(target any) error
}

// Param is one form field in submission order.
type Param struct {
	Name  string
	Value string
}

// Request describes a load issued from a page.
type Request struct {
	Method string
	URL    *url.URL
	// Params is the form-encoded body of a POST.
	Params []Param
}

// Encode renders the parameters as application/x-www-form-urlencoded.
func (r *Request) Encode() string {
	return encodeParams(r.Params)
}

// ContentType is the body type of a POST request.
const ContentType = "application/x-www-form-urlencoded"

func encodeParams(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// NewGetRequest returns a GET request for u.
func NewGetRequest(u *url.URL) *Request {
	return &Request{Method: http.MethodGet, URL: u}
}
