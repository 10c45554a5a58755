// File: internal/network/ratelimit.go
package network

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware delays requests so that no more than the configured
// number per second reach the wrapped transport.
type RateLimitMiddleware struct {
	Transport http.RoundTripper
	limiter   *rate.Limiter
}

// NewRateLimitMiddleware wraps transport. A burst below one is raised to one.
func NewRateLimitMiddleware(transport http.RoundTripper, perSecond float64, burst int) *RateLimitMiddleware {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitMiddleware{
		Transport: transport,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// RoundTrip implements http.RoundTripper.
func (m *RateLimitMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := m.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return m.Transport.RoundTrip(req)
}
