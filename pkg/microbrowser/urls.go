// pkg/microbrowser/urls.go
package microbrowser

import (
	"net/url"
	"strings"
)

// ParseStrict parses an absolute URL where a URL is mandatory. A malformed or
// relative URL is the caller's error.
func ParseStrict(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, NewArgumentError("invalid URL: %s", raw)
	}
	if !u.IsAbs() {
		return nil, NewArgumentError("invalid URL: %s", raw)
	}
	return u, nil
}

// ParseLenient parses an absolute URL where a missing or invalid URL is a
// normal outcome, returning nil in that case.
func ParseLenient(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	u, err := ParseStrict(raw)
	if err != nil {
		return nil
	}
	return u
}

// ResolveReference resolves ref against base the way an href is resolved,
// returning the empty string when ref is empty or cannot be resolved.
func ResolveReference(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		if r.IsAbs() {
			return r.String()
		}
		return ""
	}
	return base.ResolveReference(r).String()
}
