// pkg/microbrowser/headless/engine_test.go
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"github.com/markhobson/microbrowser-sub000/internal/conformance"
	"github.com/markhobson/microbrowser-sub000/internal/network"
	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	client := network.NewClient(network.NewDefaultClientConfig())
	t.Cleanup(client.CloseIdleConnections)
	return New(append([]Option{WithClient(client), WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestConformance(t *testing.T) {
	conformance.Run(t, newTestEngine(t))
}

// -- Parsing --

func TestParse_BaseHref(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.Parse(mustParse(t, "http://example.com/dir/page"), strings.NewReader(`
		<html><head><base href="http://cdn.example.com/assets/"></head>
		<body><a rel="logo" href="logo.png">logo</a></body></html>`))
	require.NoError(t, err)

	doc := microbrowser.New(e).Wrap(p)
	link, err := doc.Link("logo")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example.com/assets/logo.png", link.Href().String())
	assert.Equal(t, "http://example.com/dir/page", doc.URL().String(), "the document URL is not the base")
}

func TestParse_RadiosOutsideFormsNormalised(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.Parse(mustParse(t, "http://example.com/"), strings.NewReader(`
		<input type="radio" name="r" value="1" checked>
		<input type="RADIO" name="r" value="2" checked>
		<form><input type="radio" name="r" value="3" checked></form>`))
	require.NoError(t, err)

	els, err := p.Root().Select(`input[name="r"]`)
	require.NoError(t, err)
	require.Len(t, els, 3)
	assert.False(t, els[0].Selected())
	assert.True(t, els[1].Selected())
	assert.True(t, els[2].Selected(), "a radio in a form is its own group")
}

func TestElement(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.Parse(mustParse(t, "http://example.com/"), strings.NewReader(`
		<div id="d" class="c">  Hello
			<b>world</b> </div>
		<textarea name="ta">one</textarea>
		<input name="i" value="v">`))
	require.NoError(t, err)
	root := p.Root()

	t.Run("attributes and text", func(t *testing.T) {
		els, err := root.Select("#d")
		require.NoError(t, err)
		require.Len(t, els, 1)
		d := els[0]
		assert.Equal(t, "div", d.TagName())
		v, ok := d.Attribute("class")
		assert.True(t, ok)
		assert.Equal(t, "c", v)
		_, ok = d.Attribute("missing")
		assert.False(t, ok)
		assert.Equal(t, "Hello world", d.Text())
		assert.Equal(t, "", d.AbsoluteAttribute("missing"))
	})

	t.Run("textarea value is its text", func(t *testing.T) {
		els, err := root.Select("textarea")
		require.NoError(t, err)
		ta := els[0]
		assert.Equal(t, "one", ta.Value())
		require.NoError(t, ta.SetValue("two <b>"))
		assert.Equal(t, "two <b>", ta.Value())
	})

	t.Run("input value is its attribute", func(t *testing.T) {
		els, err := root.Select("input")
		require.NoError(t, err)
		in := els[0]
		require.NoError(t, in.SetValue("w"))
		v, _ := in.Attribute("value")
		assert.Equal(t, "w", v)

		require.NoError(t, in.SetSelected(true))
		assert.True(t, in.Selected())
		require.NoError(t, in.SetSelected(false))
		assert.False(t, in.Selected())
	})

	t.Run("invalid selector", func(t *testing.T) {
		_, err := root.Select("input[")
		assert.ErrorIs(t, err, microbrowser.ErrInvalidArgument)
	})

	t.Run("unwrap", func(t *testing.T) {
		els, err := root.Select("input")
		require.NoError(t, err)

		var sel *goquery.Selection
		require.NoError(t, els[0].Unwrap(&sel))
		assert.Equal(t, "input", goquery.NodeName(sel))

		var node *html.Node
		require.NoError(t, els[0].Unwrap(&node))
		assert.Equal(t, "input", node.Data)

		var doc *goquery.Document
		assert.ErrorIs(t, els[0].Unwrap(&doc), microbrowser.ErrInvalidArgument)
		require.NoError(t, root.Unwrap(&doc))
		assert.NotNil(t, doc)

		var s string
		assert.ErrorIs(t, els[0].Unwrap(&s), microbrowser.ErrInvalidArgument)
	})
}

// -- Transport --

func TestEngine_RequestHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		fmt.Fprint(w, `<a rel="next" href="/next">next</a>`)
	}))
	defer server.Close()

	e := newTestEngine(t, WithUserAgent("test-agent/2"), WithHeaders(map[string]string{"X-Trace": "abc"}))
	p, err := e.Open(testContext(t), mustParse(t, server.URL+"/start"))
	require.NoError(t, err)
	assert.Equal(t, "test-agent/2", got.Get("User-Agent"))
	assert.Equal(t, "abc", got.Get("X-Trace"))
	assert.Empty(t, got.Get("Referer"))
	assert.Empty(t, got.Get("Cookie"))

	_, err = p.Load(testContext(t), microbrowser.NewGetRequest(mustParse(t, server.URL+"/next")))
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/start", got.Get("Referer"))
}

func TestEngine_PostContentType(t *testing.T) {
	var contentType, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		assert.NoError(t, r.ParseForm())
		body = r.PostForm.Encode()
	}))
	defer server.Close()

	e := newTestEngine(t)
	p, err := e.Parse(mustParse(t, server.URL), strings.NewReader(""))
	require.NoError(t, err)

	_, err = p.Load(testContext(t), &microbrowser.Request{
		Method: http.MethodPost,
		URL:    mustParse(t, server.URL+"/post"),
		Params: []microbrowser.Param{{Name: "a b", Value: "c&d"}},
	})
	require.NoError(t, err)
	assert.Equal(t, microbrowser.ContentType, contentType)
	assert.Equal(t, "a+b=c%26d", body)
}

func TestEngine_ErrorStatusIsLoaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `<a rel="home" href="/">home</a>`)
	}))
	defer server.Close()

	e := newTestEngine(t)
	p, err := e.Open(testContext(t), mustParse(t, server.URL+"/missing"))
	require.NoError(t, err)

	links, err := p.Root().Select(`a[rel~="home"]`)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestEngine_Redirects(t *testing.T) {
	t.Run("307 keeps the method and body", func(t *testing.T) {
		var method, body string
		mux := http.NewServeMux()
		mux.HandleFunc("/from", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/to", http.StatusTemporaryRedirect)
		})
		mux.HandleFunc("/to", func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			assert.NoError(t, r.ParseForm())
			body = r.PostForm.Encode()
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		e := newTestEngine(t)
		p, err := e.Parse(mustParse(t, server.URL), strings.NewReader(""))
		require.NoError(t, err)
		next, err := p.Load(testContext(t), &microbrowser.Request{
			Method: http.MethodPost,
			URL:    mustParse(t, server.URL+"/from"),
			Params: []microbrowser.Param{{Name: "k", Value: "v"}},
		})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, "k=v", body)
		assert.Equal(t, "/to", next.URL().Path)
	})

	t.Run("limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/loop", http.StatusFound)
		}))
		defer server.Close()

		e := newTestEngine(t, WithMaxRedirects(2))
		_, err := e.Open(testContext(t), mustParse(t, server.URL+"/loop"))
		require.Error(t, err)
		assert.ErrorIs(t, err, microbrowser.ErrTransport)
		assert.Contains(t, err.Error(), "maximum number of redirects (2) exceeded")
	})

	t.Run("missing location", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusFound)
		}))
		defer server.Close()

		e := newTestEngine(t)
		_, err := e.Open(testContext(t), mustParse(t, server.URL))
		assert.ErrorIs(t, err, microbrowser.ErrTransport)
	})
}

func TestEngine_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	e := newTestEngine(t)
	_, err := e.Open(testContext(t), mustParse(t, addr))
	require.Error(t, err)

	var te *microbrowser.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.MethodGet, te.Op)
	assert.Equal(t, addr, te.URL)
	assert.NotNil(t, errors.Unwrap(te))
}

func TestEngine_CookiesCopiedPerPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/one", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "a", Value: "1"})
	})
	mux.HandleFunc("/two", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "b", Value: "2"})
		http.SetCookie(w, &http.Cookie{Name: "a", MaxAge: -1})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	e := newTestEngine(t)
	one, err := e.Open(testContext(t), mustParse(t, server.URL+"/one"))
	require.NoError(t, err)
	two, err := one.Load(testContext(t), microbrowser.NewGetRequest(mustParse(t, server.URL+"/two")))
	require.NoError(t, err)

	c1, err := one.Cookies()
	require.NoError(t, err)
	c2, err := two.Cookies()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, c1, "earlier pages keep their cookie set")
	assert.Equal(t, map[string]string{"b": "2"}, c2)
}

func TestCookieHeader(t *testing.T) {
	assert.Equal(t, "", cookieHeader(nil))
	assert.Equal(t, "x=y", cookieHeader(map[string]string{"x": "y"}))
	assert.Equal(t, "a=1; b=2; c=3", cookieHeader(map[string]string{"c": "3", "a": "1", "b": "2"}))
}

func TestRedirectMethod(t *testing.T) {
	cases := []struct {
		status     int
		method     string
		wantMethod string
		wantBody   string
	}{
		{http.StatusSeeOther, http.MethodPost, http.MethodGet, ""},
		{http.StatusSeeOther, http.MethodHead, http.MethodHead, ""},
		{http.StatusFound, http.MethodPost, http.MethodGet, ""},
		{http.StatusMovedPermanently, http.MethodPost, http.MethodGet, ""},
		{http.StatusFound, http.MethodGet, http.MethodGet, "b"},
		{http.StatusTemporaryRedirect, http.MethodPost, http.MethodPost, "b"},
		{http.StatusPermanentRedirect, http.MethodPost, http.MethodPost, "b"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d %s", tc.status, tc.method), func(t *testing.T) {
			method, body := redirectMethod(tc.status, tc.method, "b")
			assert.Equal(t, tc.wantMethod, method)
			assert.Equal(t, tc.wantBody, body)
		})
	}
}
