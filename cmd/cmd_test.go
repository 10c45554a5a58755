// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markhobson/microbrowser-sub000/internal/config"
	"github.com/markhobson/microbrowser-sub000/internal/conformance"
	"github.com/markhobson/microbrowser-sub000/internal/observability"
)

// execute runs a pristine root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

const fixture = `
	<html><head><title>fixture</title></head><body>
	<a rel="next" href="/next">next</a>
	<a rel="next alternate" href="/alt">alt</a>
	<div itemscope itemtype="http://schema.org/Person" itemid="/people/1">
		<span itemprop="name">Ada</span>
		<meta itemprop="age" content="36">
	</div>
	<form name="search" action="/search" method="post">
		<input name="q" value="">
		<input type="checkbox" name="opt" value="a">
		<input type="checkbox" name="opt" value="b">
		<input type="hidden" name="token" value="t1">
		<input type="submit">
	</form>
	</body></html>`

func newFixtureServer(t *testing.T) *conformance.Server {
	t.Helper()
	server := conformance.NewServer(t)
	server.Page("/", fixture, "Set-Cookie: session=abc")
	server.Page("/next", `<p>next page</p>`)
	server.Page("/search", `<p>results</p>`)
	return server
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "microbrowser version "+Version)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "microbrowser "+Version+"\n", out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Microbrowser reads links, microdata and forms from HTML pages.")
}

func TestGetCmd(t *testing.T) {
	server := newFixtureServer(t)

	out, err := execute(t, "get", server.URL("/"))
	require.NoError(t, err)
	assert.Equal(t, server.URL("/")+"\ncookie session=abc\n", out)

	out, err = execute(t, "get", "--html", server.URL("/next"))
	require.NoError(t, err)
	assert.Contains(t, out, "<p>next page</p>")
}

func TestGetCmd_InvalidURL(t *testing.T) {
	_, err := execute(t, "get", "not-absolute")
	assert.Error(t, err)
}

func TestLinksCmd(t *testing.T) {
	server := newFixtureServer(t)

	out, err := execute(t, "links", "--rel", "next", server.URL("/"))
	require.NoError(t, err)
	assert.Equal(t,
		"next\t"+server.URL("/next")+"\n"+
			"next alternate\t"+server.URL("/alt")+"\n",
		out)

	out, err = execute(t, "links", "--rel", "next", "--follow", server.URL("/"))
	require.NoError(t, err)
	assert.Contains(t, out, server.URL("/next"))

	req, ok := server.LastRequest("/next")
	require.True(t, ok)
	assert.Equal(t, "session=abc", req.Cookie)

	_, err = execute(t, "links", server.URL("/"))
	assert.Error(t, err, "--rel is required")
}

func TestItemsCmd(t *testing.T) {
	server := newFixtureServer(t)

	out, err := execute(t, "items", "--type", "http://schema.org/Person", "--prop", "name,age", "--json", server.URL("/"))
	require.NoError(t, err)

	var items []itemOutput
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, itemOutput{
		Type: "http://schema.org/Person",
		ID:   server.URL("/people/1"),
		Properties: map[string][]string{
			"name": {"Ada"},
			"age":  {"36"},
		},
	}, items[0])

	out, err = execute(t, "items", "--type", "http://schema.org/Person", "-p", "name", server.URL("/"))
	require.NoError(t, err)
	assert.Equal(t, "http://schema.org/Person "+server.URL("/people/1")+"\n  name: Ada\n", out)
}

func TestSubmitCmd(t *testing.T) {
	server := newFixtureServer(t)

	out, err := execute(t, "submit", server.URL("/"),
		"--form", "search",
		"--set", "q=go lang",
		"--set", "opt=a",
		"--set", "opt=b",
		"--param", "token=t2",
	)
	require.NoError(t, err)
	assert.Contains(t, out, server.URL("/search"))

	req, ok := server.LastRequest("/search")
	require.True(t, ok)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "q=go+lang&opt=a&opt=b&token=t2", req.Body)
	assert.Equal(t, "session=abc", req.Cookie)
}

func TestSubmitCmd_Errors(t *testing.T) {
	server := newFixtureServer(t)

	_, err := execute(t, "submit", server.URL("/"), "--form", "missing")
	assert.Error(t, err)

	_, err = execute(t, "submit", server.URL("/"), "--form", "search", "--set", "novalue")
	assert.Error(t, err)

	_, err = execute(t, "submit", server.URL("/"), "--form", "search", "--param", "unknown=1")
	assert.Error(t, err)
}

func TestRootCmd_ConfigFile(t *testing.T) {
	var userAgent string
	server := conformance.NewServer(t)
	server.Handle("/", func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
	})

	path := filepath.Join(t.TempDir(), "microbrowser.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser:\n  user_agent: cli-test/1\n"), 0o600))

	_, err := execute(t, "--config", path, "get", server.URL("/"))
	require.NoError(t, err)
	assert.Equal(t, "cli-test/1", userAgent)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	t.Setenv("MICROBROWSER_BROWSER_ENGINE", "netscape")
	_, err := execute(t, "get", "http://example.com/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")

	_, err = execute(t, "--engine", "netscape", "get", "http://example.com/")
	assert.Error(t, err)
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "get", "http://example.com/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize configuration")
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"a=1", "b=", "a=2=3"})
	require.NoError(t, err)
	assert.Equal(t, []assignment{
		{name: "a", values: []string{"1", "2=3"}},
		{name: "b", values: []string{""}},
	}, got)

	_, err = parseAssignments([]string{"=1"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"a"})
	assert.Error(t, err)
}

func TestClientConfig(t *testing.T) {
	netCfg := config.NewDefaultConfig().Network()
	netCfg.Timeout = 5 * time.Second
	netCfg.RateLimit = 2
	netCfg.RateBurst = 3
	netCfg.Proxy = "http://proxy.example:3128"
	netCfg.IgnoreTLSErrors = true

	cc, err := clientConfig(netCfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cc.RequestTimeout)
	assert.Equal(t, 2.0, cc.RateLimit)
	assert.Equal(t, 3, cc.RateBurst)
	assert.True(t, cc.IgnoreTLSErrors)
	require.NotNil(t, cc.ProxyURL)
	assert.Equal(t, "proxy.example:3128", cc.ProxyURL.Host)
}

func TestNewEngine_Unknown(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.SetBrowserEngine("netscape")
	_, _, err := newEngine(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
