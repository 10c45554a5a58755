// pkg/microbrowser/headless/transport.go
package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// fetch issues req with the given cookies, follows redirects and parses the
// final response. Cookies set by any hop are merged into the new page's set;
// the caller's map is never modified.
func (e *Engine) fetch(ctx context.Context, req *microbrowser.Request, cookies map[string]string, referer string) (*page, error) {
	jar := make(map[string]string, len(cookies))
	for k, v := range cookies {
		jar[k] = v
	}

	method := req.Method
	target := req.URL
	var body string
	if method == http.MethodPost {
		body = req.Encode()
	}

	for hop := 0; ; hop++ {
		httpReq, err := e.newRequest(ctx, method, target, body, jar, referer)
		if err != nil {
			return nil, microbrowser.NewTransportError(method, target.String(), err)
		}

		e.logger.Debug("Executing request",
			zap.String("method", method),
			zap.String("url", target.String()),
			zap.Int("cookies", len(jar)),
		)
		resp, err := e.client.Do(httpReq)
		if err != nil {
			return nil, microbrowser.NewTransportError(method, target.String(), err)
		}

		if n := mergeCookies(jar, resp.Cookies()); n > 0 {
			e.logger.Debug("Merged response cookies", zap.Int("count", n), zap.String("url", target.String()))
		}

		if !isRedirect(resp.StatusCode) {
			return e.readPage(method, target, resp, jar)
		}

		location := resp.Header.Get("Location")
		drain(resp)
		if location == "" {
			return nil, microbrowser.NewTransportError(method, target.String(),
				errors.New("redirect response missing Location header"))
		}
		if hop >= e.maxRedirects {
			return nil, microbrowser.NewTransportError(method, target.String(),
				fmt.Errorf("maximum number of redirects (%d) exceeded", e.maxRedirects))
		}

		next, err := target.Parse(location)
		if err != nil {
			return nil, microbrowser.NewTransportError(method, target.String(),
				fmt.Errorf("failed to parse redirect Location '%s': %w", location, err))
		}

		referer = target.String()
		method, body = redirectMethod(resp.StatusCode, method, body)
		target = next
	}
}

func (e *Engine) newRequest(ctx context.Context, method string, target *url.URL, body string, cookies map[string]string, referer string) (*http.Request, error) {
	var r io.Reader
	if body != "" || method == http.MethodPost {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), r)
	if err != nil {
		return nil, err
	}

	for k, values := range e.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", e.userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", acceptHTML)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", microbrowser.ContentType)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	if header := cookieHeader(cookies); header != "" {
		req.Header.Set("Cookie", header)
	}
	return req, nil
}

func (e *Engine) readPage(method string, target *url.URL, resp *http.Response, cookies map[string]string) (*page, error) {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		e.logger.Debug("Request resulted in error status code",
			zap.Int("status", resp.StatusCode),
			zap.String("url", target.String()),
		)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		e.logger.Debug("Parsing non-HTML response", zap.String("content_type", ct))
	}

	p, err := newPage(e, target, resp.Body, cookies)
	if err != nil {
		return nil, microbrowser.NewTransportError(method, target.String(), err)
	}
	return p, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// redirectMethod picks the method and body of the next hop. 303 always
// becomes GET; 301 and 302 turn a POST into a GET; 307 and 308 replay it.
func redirectMethod(status int, method, body string) (string, string) {
	switch status {
	case http.StatusSeeOther:
		if method != http.MethodHead {
			return http.MethodGet, ""
		}
		return method, ""
	case http.StatusMovedPermanently, http.StatusFound:
		if method == http.MethodPost {
			return http.MethodGet, ""
		}
		return method, body
	default:
		return method, body
	}
}

// mergeCookies applies Set-Cookie values by name and reports how many there were.
// A cookie that expires immediately is removed.
func mergeCookies(jar map[string]string, cookies []*http.Cookie) int {
	for _, c := range cookies {
		if c.MaxAge < 0 {
			delete(jar, c.Name)
			continue
		}
		jar[c.Name] = c.Value
	}
	return len(cookies)
}

// cookieHeader renders the set as "a=1; b=2", sorted by name.
func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+cookies[name])
	}
	return strings.Join(parts, "; ")
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
