// File: internal/conformance/suite.go
// Package conformance holds the behavioural checks every engine must pass.
// Engine tests call Run with their own engine; the fixtures are served over
// HTTP so that navigation, submission and cookies are exercised end to end.
package conformance

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

const itemType = "http://example.com/Thing"

type suite struct {
	server  *Server
	browser *microbrowser.Browser
}

// Run executes the suite against engine.
func Run(t *testing.T, engine microbrowser.Engine) {
	s := &suite{
		server:  NewServer(t),
		browser: microbrowser.New(engine, microbrowser.WithLogger(zaptest.NewLogger(t))),
	}

	t.Run("Links", s.testLinks)
	t.Run("Items", s.testItems)
	t.Run("PropertyValues", s.testPropertyValues)
	t.Run("Controls", s.testControls)
	t.Run("Radios", s.testRadios)
	t.Run("ControlGroups", s.testControlGroups)
	t.Run("FormSubmission", s.testFormSubmission)
	t.Run("FormParameters", s.testFormParameters)
	t.Run("Cookies", s.testCookies)
	t.Run("Redirects", s.testRedirects)
}

func (s *suite) get(t *testing.T, path string) *microbrowser.Document {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	doc, err := s.browser.Get(ctx, s.server.URL(path))
	require.NoError(t, err)
	return doc
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return c
}

// assertCookie checks that a Cookie header carries pair. Engines that share a
// browser-wide jar may send cookies from earlier fixtures as well.
func assertCookie(t *testing.T, header, pair string) {
	t.Helper()
	assert.Contains(t, strings.Split(header, "; "), pair, "Cookie: %s", header)
}

func page(body string) string {
	return "<!DOCTYPE html><html><head><title>fixture</title></head><body>" + body + "</body></html>"
}

func (s *suite) testLinks(t *testing.T) {
	s.server.Page("/links", page(`
		<a rel="next" href="/links/1">first</a>
		<a rel="next" href="/links/2">second</a>
		<a rel="up self" href="/links/up">up</a>
		<map name="m"><area rel="help" href="/links/help"></map>
		<a rel="nowhere">no href</a>
	`))
	s.server.Page("/links/1", page(`<p>one</p>`))
	doc := s.get(t, "/links")

	t.Run("first match", func(t *testing.T) {
		link, err := doc.Link("next")
		require.NoError(t, err)
		assert.Equal(t, "next", link.Rel())
		require.NotNil(t, link.Href())
		assert.Equal(t, s.server.URL("/links/1"), link.Href().String())
	})

	t.Run("all matches in document order", func(t *testing.T) {
		links, err := doc.Links("next")
		require.NoError(t, err)
		var hrefs []string
		for _, l := range links {
			hrefs = append(hrefs, l.Href().Path)
		}
		assert.Empty(t, cmp.Diff([]string{"/links/1", "/links/2"}, hrefs))
	})

	t.Run("relation token list and area", func(t *testing.T) {
		up, err := doc.Link("self")
		require.NoError(t, err)
		assert.Equal(t, "/links/up", up.Href().Path)

		help, err := doc.Link("help")
		require.NoError(t, err)
		assert.Equal(t, "/links/help", help.Href().Path)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := doc.Link("missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, microbrowser.ErrNotFound))
		var nf *microbrowser.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "missing", nf.Key)

		links, err := doc.Links("missing")
		require.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("no destination", func(t *testing.T) {
		link, err := doc.Link("nowhere")
		require.NoError(t, err)
		assert.Nil(t, link.Href())
		_, err = link.Follow(ctx(t))
		assert.ErrorIs(t, err, microbrowser.ErrInvalidState)
	})

	t.Run("unwrap to a foreign type", func(t *testing.T) {
		link, err := doc.Link("next")
		require.NoError(t, err)
		var target *string
		assert.ErrorIs(t, link.Unwrap(&target), microbrowser.ErrInvalidArgument)
	})

	// Runs last: the chrome engine retires a page once the tab navigates.
	t.Run("follow", func(t *testing.T) {
		link, err := doc.Link("next")
		require.NoError(t, err)
		next, err := link.Follow(ctx(t))
		require.NoError(t, err)
		assert.Equal(t, "/links/1", next.URL().Path)
		assert.Equal(t, "/links", doc.URL().Path, "the original document is unchanged")
	})
}

func (s *suite) testItems(t *testing.T) {
	s.server.Page("/items", page(`
		<div itemscope itemtype="`+itemType+`" itemid="/things/1">
			<span itemprop="name">First</span>
			<a rel="self" href="/things/1">self</a>
		</div>
		<div itemscope itemtype="http://example.com/Other `+itemType+`">
			<span itemprop="name">Second</span>
		</div>
	`))
	doc := s.get(t, "/items")

	t.Run("first match", func(t *testing.T) {
		item, err := doc.Item(itemType)
		require.NoError(t, err)
		assert.Equal(t, itemType, item.Type())
		require.NotNil(t, item.ID())
		assert.Equal(t, s.server.URL("/things/1"), item.ID().String())

		name, err := item.Property("name")
		require.NoError(t, err)
		assert.Equal(t, "First", name.Value())
	})

	t.Run("all matches", func(t *testing.T) {
		items, err := doc.Items(itemType)
		require.NoError(t, err)
		require.Len(t, items, 2)
		name, err := items[1].Property("name")
		require.NoError(t, err)
		assert.Equal(t, "Second", name.Value())
		assert.Nil(t, items[1].ID())
	})

	t.Run("not found carries the type", func(t *testing.T) {
		_, err := doc.Item("http://example.com/Missing")
		var nf *microbrowser.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "item", nf.Kind)
		assert.Equal(t, "http://example.com/Missing", nf.Key)
	})

	t.Run("type must be a URL", func(t *testing.T) {
		_, err := doc.Item("Thing")
		assert.ErrorIs(t, err, microbrowser.ErrInvalidArgument)
		assert.False(t, errors.Is(err, microbrowser.ErrNotFound))
	})

	t.Run("missing property", func(t *testing.T) {
		item, err := doc.Item(itemType)
		require.NoError(t, err)
		_, err = item.Property("missing")
		assert.ErrorIs(t, err, microbrowser.ErrNotFound)
	})

	t.Run("item links", func(t *testing.T) {
		item, err := doc.Item(itemType)
		require.NoError(t, err)
		link, err := item.Link("self")
		require.NoError(t, err)
		assert.Equal(t, "/things/1", link.Href().Path)
	})
}

func (s *suite) testPropertyValues(t *testing.T) {
	s.server.Page("/properties", page(`
		<div itemscope itemtype="`+itemType+`">
			<meta itemprop="meta" content="m">
			<meta itemprop="meta-empty">
			<audio itemprop="audio" src="/media/a.mp3"></audio>
			<embed itemprop="embed" src="/media/e.bin">
			<iframe itemprop="iframe" src="/media/i.html"></iframe>
			<img itemprop="img" src="/media/i.png">
			<img itemprop="img-empty">
			<video itemprop="video" src="/media/v.mp4"><source itemprop="source" src="/media/s.webm"><track itemprop="track" src="/media/t.vtt"></video>
			<a itemprop="anchor" href="/media/a">anchor</a>
			<map name="m"><area itemprop="area" href="/media/area"></map>
			<object itemprop="object" data="/media/o.bin"></object>
			<data itemprop="data" value="d">ignored</data>
			<meter itemprop="meter" value="0.5">half</meter>
			<time itemprop="time" datetime="2020-01-01">January</time>
			<time itemprop="time-text">New Year</time>
			<time itemprop="time-none"></time>
			<span itemprop="span">  some
				text </span>
			<span itemprop="int">42</span>
			<span itemprop="bad-int">x</span>
			<span itemprop="float">1.5</span>
			<span itemprop="bool">TRUE</span>
			<span itemprop="not-bool">yes</span>
		</div>
	`))
	doc := s.get(t, "/properties")
	item, err := doc.Item(itemType)
	require.NoError(t, err)

	value := func(t *testing.T, name string) *microbrowser.MicrodataProperty {
		t.Helper()
		p, err := item.Property(name)
		require.NoError(t, err)
		return p
	}

	cases := []struct {
		name string
		want string
	}{
		{"meta", "m"},
		{"meta-empty", ""},
		{"audio", s.server.URL("/media/a.mp3")},
		{"embed", s.server.URL("/media/e.bin")},
		{"iframe", s.server.URL("/media/i.html")},
		{"img", s.server.URL("/media/i.png")},
		{"img-empty", ""},
		{"source", s.server.URL("/media/s.webm")},
		{"track", s.server.URL("/media/t.vtt")},
		{"anchor", s.server.URL("/media/a")},
		{"area", s.server.URL("/media/area")},
		{"object", s.server.URL("/media/o.bin")},
		{"data", "d"},
		{"meter", "0.5"},
		{"time", "2020-01-01"},
		{"time-text", "New Year"},
		{"time-none", ""},
		{"span", "some text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, value(t, tc.name).Value())
		})
	}

	t.Run("typed accessors", func(t *testing.T) {
		assert.Equal(t, 42, value(t, "int").Int())
		assert.Equal(t, int64(42), value(t, "int").Int64())
		assert.Zero(t, value(t, "bad-int").Int())
		assert.Equal(t, float32(1.5), value(t, "float").Float32())
		assert.Equal(t, 1.5, value(t, "float").Float64())
		assert.True(t, value(t, "bool").Bool())
		assert.False(t, value(t, "not-bool").Bool())
		assert.False(t, value(t, "meta-empty").Bool())
	})
}

func (s *suite) testControls(t *testing.T) {
	s.server.Page("/controls", page(`
		<form name="f" action="/controls/submit">
			<input type="text" name="t" value="initial">
			<input name="untyped">
			<input type="password" name="p">
			<textarea name="ta">notes</textarea>
			<input type="hidden" name="h" value="secret">
			<input type="checkbox" name="cb">
			<input type="checkbox" name="cbv" value="x" checked>
			<input type="submit" name="go" value="Go">
		</form>
	`))
	doc := s.get(t, "/controls")
	form, err := doc.Form("f")
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		v, err := form.ControlValue("t")
		require.NoError(t, err)
		assert.Equal(t, "initial", v)

		require.NoError(t, form.SetControlValue("t", "changed"))
		v, err = form.ControlValue("t")
		require.NoError(t, err)
		assert.Equal(t, "changed", v)

		c, err := form.Control("untyped")
		require.NoError(t, err)
		assert.IsType(t, &microbrowser.TextControl{}, c)
	})

	t.Run("password and textarea", func(t *testing.T) {
		require.NoError(t, form.SetControlValue("p", "hunter2"))
		v, err := form.ControlValue("p")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", v)

		v, err = form.ControlValue("ta")
		require.NoError(t, err)
		assert.Equal(t, "notes", v)
		require.NoError(t, form.SetControlValue("ta", "more notes"))
		v, err = form.ControlValue("ta")
		require.NoError(t, err)
		assert.Equal(t, "more notes", v)
	})

	t.Run("hidden is read-only", func(t *testing.T) {
		v, err := form.ControlValue("h")
		require.NoError(t, err)
		assert.Equal(t, "secret", v)

		err = form.SetControlValue("h", "other")
		assert.ErrorIs(t, err, microbrowser.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "h")
	})

	t.Run("checkbox", func(t *testing.T) {
		c, err := form.Control("cb")
		require.NoError(t, err)
		cb := c.(microbrowser.CheckableControl)
		assert.Equal(t, "on", cb.CheckedValue())
		assert.Equal(t, "", cb.Value())

		require.NoError(t, cb.SetValue("on"))
		assert.True(t, cb.Checked())
		assert.Equal(t, "on", cb.Value())

		err = cb.SetValue("z")
		assert.ErrorIs(t, err, microbrowser.ErrInvalidArgument)

		require.NoError(t, cb.SetValue(""))
		assert.False(t, cb.Checked())

		v, err := form.ControlValue("cbv")
		require.NoError(t, err)
		assert.Equal(t, "x", v)
	})

	t.Run("submit buttons are not controls", func(t *testing.T) {
		_, err := form.Control("go")
		assert.ErrorIs(t, err, microbrowser.ErrNotFound)
	})

	t.Run("unknown control", func(t *testing.T) {
		_, err := form.Control("missing")
		var nf *microbrowser.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "control", nf.Kind)
	})
}

func (s *suite) testRadios(t *testing.T) {
	s.server.Page("/radios", page(`
		<form name="f" action="/radios/submit">
			<input type="radio" name="c" checked>
			<input type="radio" name="c" value="y" checked>
			<input type="radio" name="r" value="a" checked>
			<input type="radio" name="r" value="b">
			<input type="submit">
		</form>
		<form name="g" action="/radios/submit">
			<input type="radio" name="r" value="a" checked>
			<input type="submit">
		</form>
	`))
	doc := s.get(t, "/radios")
	form, err := doc.Form("f")
	require.NoError(t, err)

	t.Run("last checked wins at load", func(t *testing.T) {
		values, err := form.ControlValues("c")
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]string{"y"}, values))
	})

	t.Run("cannot uncheck", func(t *testing.T) {
		group, err := form.ControlGroup("r")
		require.NoError(t, err)
		for _, c := range group.Controls() {
			assert.ErrorIs(t, c.SetValue(""), microbrowser.ErrInvalidArgument)
		}
		assert.ErrorIs(t, group.Controls()[0].(*microbrowser.RadioControl).SetChecked(false), microbrowser.ErrInvalidArgument)
	})

	t.Run("invalid value", func(t *testing.T) {
		c, err := form.Control("r")
		require.NoError(t, err)
		assert.ErrorIs(t, c.SetValue("z"), microbrowser.ErrInvalidArgument)
	})

	t.Run("checking one unchecks the others", func(t *testing.T) {
		group, err := form.ControlGroup("r")
		require.NoError(t, err)
		b, err := group.Control("b")
		require.NoError(t, err)
		require.NoError(t, b.SetValue("b"))

		values, err := form.ControlValues("r")
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]string{"b"}, values))
	})

	t.Run("other forms are untouched", func(t *testing.T) {
		other, err := doc.Form("g")
		require.NoError(t, err)
		values, err := other.ControlValues("r")
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]string{"a"}, values))
	})
}

func (s *suite) testControlGroups(t *testing.T) {
	s.server.Page("/groups", page(`
		<form name="f" action="/groups/submit">
			<input type="checkbox" name="c" value="x">
			<input type="checkbox" name="c" value="y" checked>
			<input type="text" name="c" value="t">
			<input type="submit">
		</form>
	`))
	doc := s.get(t, "/groups")
	form, err := doc.Form("f")
	require.NoError(t, err)

	t.Run("members and name", func(t *testing.T) {
		group, err := form.ControlGroup("c")
		require.NoError(t, err)
		assert.Equal(t, "c", group.Name())
		assert.Len(t, group.Controls(), 3)
		assert.Empty(t, cmp.Diff([]string{"y", "t"}, group.Values()))
	})

	t.Run("set values checks and unchecks", func(t *testing.T) {
		require.NoError(t, form.SetControlValues("c", "x"))
		values, err := form.ControlValues("c")
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]string{"x", "t"}, values), "text members are untouched")
	})

	t.Run("leftover values fail", func(t *testing.T) {
		err := form.SetControlValues("c", "z")
		assert.ErrorIs(t, err, microbrowser.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "z")
	})

	t.Run("control by value", func(t *testing.T) {
		group, err := form.ControlGroup("c")
		require.NoError(t, err)
		c, err := group.Control("y")
		require.NoError(t, err)
		assert.Equal(t, "y", c.(microbrowser.CheckableControl).CheckedValue())

		_, err = group.Control("nope")
		var nf *microbrowser.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "c=nope", nf.Key)
	})
}

func (s *suite) testFormSubmission(t *testing.T) {
	s.server.Page("/forms", page(`
		<form name="get" method="get" action="/forms/a">
			<input type="text" name="c" value="x">
			<input type="checkbox" name="d">
			<input type="submit">
		</form>
		<form name="post" method="post" action="/forms/a">
			<input type="text" name="c" value="x">
			<button>Send</button>
		</form>
		<form name="empty-post" method="POST" action="/forms/a">
			<input type="checkbox" name="d">
			<input type="submit">
		</form>
		<form name="empty-get" action="/forms/b?keep=1">
			<input type="checkbox" name="d">
			<input type="submit">
		</form>
		<form name="no-action">
			<input type="text" name="q" value="here">
			<button type="submit">Go</button>
		</form>
		<form name="no-button" action="/forms/a">
			<input type="text" name="c" value="x">
		</form>
	`))
	s.server.Page("/forms/a", page(`<p>a</p>`))
	s.server.Page("/forms/b", page(`<p>b</p>`))
	doc := s.get(t, "/forms")

	t.Run("missing form", func(t *testing.T) {
		_, err := doc.Form("missing")
		var nf *microbrowser.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "form", nf.Kind)
		assert.Equal(t, "missing", nf.Key)
	})

	t.Run("form lookup is cached", func(t *testing.T) {
		first, err := doc.Form("get")
		require.NoError(t, err)
		require.NoError(t, first.SetParameter("c", "pending"))

		second, err := doc.Form("get")
		require.NoError(t, err)
		assert.Same(t, first, second)
		v, ok := second.Parameter("c")
		assert.True(t, ok)
		assert.Equal(t, "pending", v)

		fresh := s.get(t, "/forms")
		third, err := fresh.Form("get")
		require.NoError(t, err)
		assert.NotSame(t, first, third)
	})

	t.Run("GET encodes the query", func(t *testing.T) {
		d := s.get(t, "/forms")
		form, err := d.Form("get")
		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, form.Method())

		next, err := form.Submit(ctx(t))
		require.NoError(t, err)
		assert.Equal(t, "/forms/a", next.URL().Path)

		req, ok := s.server.LastRequest("/forms/a")
		require.True(t, ok)
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "c=x", req.RawQuery)
	})

	t.Run("POST encodes the body", func(t *testing.T) {
		d := s.get(t, "/forms")
		form, err := d.Form("post")
		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, form.Method())

		_, err = form.Submit(ctx(t))
		require.NoError(t, err)

		req, ok := s.server.LastRequest("/forms/a")
		require.True(t, ok)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "c=x", req.Body)
	})

	t.Run("POST with only an unchecked checkbox sends an empty body", func(t *testing.T) {
		d := s.get(t, "/forms")
		form, err := d.Form("empty-post")
		require.NoError(t, err)

		_, err = form.Submit(ctx(t))
		require.NoError(t, err)

		req, ok := s.server.LastRequest("/forms/a")
		require.True(t, ok)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "", req.Body)
	})

	t.Run("GET without parameters keeps the action query", func(t *testing.T) {
		d := s.get(t, "/forms")
		form, err := d.Form("empty-get")
		require.NoError(t, err)

		_, err = form.Submit(ctx(t))
		require.NoError(t, err)

		req, ok := s.server.LastRequest("/forms/b")
		require.True(t, ok)
		assert.Equal(t, "keep=1", req.RawQuery)
	})

	t.Run("missing action submits to the document", func(t *testing.T) {
		d := s.get(t, "/forms")
		form, err := d.Form("no-action")
		require.NoError(t, err)
		action, err := form.Action()
		require.NoError(t, err)
		assert.Equal(t, d.URL().String(), action.String())

		next, err := form.Submit(ctx(t))
		require.NoError(t, err)
		assert.Equal(t, "/forms", next.URL().Path)
		req, ok := s.server.LastRequest("/forms")
		require.True(t, ok)
		assert.Equal(t, "q=here", req.RawQuery)
	})

	t.Run("missing submit button", func(t *testing.T) {
		d := s.get(t, "/forms")
		form, err := d.Form("no-button")
		require.NoError(t, err)
		_, err = form.Submit(ctx(t))
		assert.ErrorIs(t, err, microbrowser.ErrInvalidState)
		assert.Contains(t, err.Error(), "no-button")
	})
}

func (s *suite) testFormParameters(t *testing.T) {
	s.server.Page("/params", page(`
		<form name="f" method="post" action="/params/a">
			<input type="text" name="c" value="x">
			<input type="text" name="c" value="x2">
			<input type="hidden" name="token" value="t1">
			<input type="submit">
		</form>
		<form name="g" action="/params/a">
			<input type="text" name="only-in-g" value="1">
			<input type="submit">
		</form>
	`))
	s.server.Page("/params/a", page(`<p>a</p>`))

	t.Run("unknown name", func(t *testing.T) {
		form, err := s.get(t, "/params").Form("f")
		require.NoError(t, err)
		err = form.SetParameter("nope", "v")
		assert.ErrorIs(t, err, microbrowser.ErrInvalidArgument)
	})

	t.Run("name from another form", func(t *testing.T) {
		form, err := s.get(t, "/params").Form("f")
		require.NoError(t, err)
		err = form.SetParameter("only-in-g", "v")
		assert.ErrorIs(t, err, microbrowser.ErrInvalidArgument)
	})

	t.Run("overrides replace control values", func(t *testing.T) {
		form, err := s.get(t, "/params").Form("f")
		require.NoError(t, err)
		require.NoError(t, form.SetParameter("c", "y"))
		require.NoError(t, form.SetParameter("token", "t2"))

		_, err = form.Submit(ctx(t))
		require.NoError(t, err)
		req, ok := s.server.LastRequest("/params/a")
		require.True(t, ok)
		assert.Equal(t, "c=y&token=t2", req.Body)
	})
}

func (s *suite) testCookies(t *testing.T) {
	s.server.Page("/cookies", page(`
		<a rel="next" href="/cookies/next">next</a>
		<form name="f" method="post" action="/cookies/submit">
			<input type="text" name="c" value="x">
			<input type="submit">
		</form>
	`), "Set-Cookie: x=y; Path=/")
	s.server.Page("/cookies/next", page(`<p>next</p>`))
	s.server.Page("/cookies/submit", page(`<p>submitted</p>`))

	doc := s.get(t, "/cookies")

	t.Run("document cookie set", func(t *testing.T) {
		v, err := doc.Cookie("x")
		require.NoError(t, err)
		assert.Equal(t, "y", v)

		_, err = doc.Cookie("missing")
		assert.ErrorIs(t, err, microbrowser.ErrNotFound)
	})

	t.Run("sent when following a link", func(t *testing.T) {
		link, err := doc.Link("next")
		require.NoError(t, err)
		_, err = link.Follow(ctx(t))
		require.NoError(t, err)

		req, ok := s.server.LastRequest("/cookies/next")
		require.True(t, ok)
		assertCookie(t, req.Cookie, "x=y")
	})

	t.Run("sent when submitting a form", func(t *testing.T) {
		form, err := s.get(t, "/cookies").Form("f")
		require.NoError(t, err)
		_, err = form.Submit(ctx(t))
		require.NoError(t, err)

		req, ok := s.server.LastRequest("/cookies/submit")
		require.True(t, ok)
		assertCookie(t, req.Cookie, "x=y")
	})
}

func (s *suite) testRedirects(t *testing.T) {
	s.server.Page("/redirects", page(`
		<form name="f" method="post" action="/redirects/post">
			<input type="text" name="c" value="x">
			<input type="submit">
		</form>
	`))
	s.server.Redirect("/redirects/post", "/redirects/done", http.StatusSeeOther, "Set-Cookie: hop=1; Path=/")
	s.server.Page("/redirects/done", page(`<a rel="next" href="/redirects/after">after</a>`))
	s.server.Page("/redirects/after", page(`<p>after</p>`))

	form, err := s.get(t, "/redirects").Form("f")
	require.NoError(t, err)
	done, err := form.Submit(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, "/redirects/done", done.URL().Path)

	req, ok := s.server.LastRequest("/redirects/done")
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, req.Method, "303 after POST is followed as GET")
	assertCookie(t, req.Cookie, "hop=1")

	link, err := done.Link("next")
	require.NoError(t, err)
	_, err = link.Follow(ctx(t))
	require.NoError(t, err)
	after, ok := s.server.LastRequest("/redirects/after")
	require.True(t, ok)
	assertCookie(t, after.Cookie, "hop=1")
}
