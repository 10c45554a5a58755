// File: internal/conformance/server.go
package conformance

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Request is what the fixture server saw of one request.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Body     string
	Cookie   string
	Referer  string
}

// Server serves HTML fixtures and records the requests made to them.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []Request
}

// NewServer starts a fixture server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{handlers: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	h, ok := s.handlers[r.URL.Path]
	if ok {
		s.requests = append(s.requests, Request{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Body:     string(body),
			Cookie:   r.Header.Get("Cookie"),
			Referer:  r.Header.Get("Referer"),
		})
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// Handle registers h for path.
func (s *Server) Handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[path] = h
}

// Page serves markup at path. Extra headers are given as "Name: value".
func (s *Server) Page(path, markup string, headers ...string) {
	s.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		for _, h := range headers {
			name, value, _ := strings.Cut(h, ":")
			w.Header().Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, markup)
	})
}

// Redirect answers path with status and a Location header.
func (s *Server) Redirect(path, location string, status int, headers ...string) {
	s.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		for _, h := range headers {
			name, value, _ := strings.Cut(h, ":")
			w.Header().Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
		w.Header().Set("Location", location)
		w.WriteHeader(status)
	})
}

// URL returns the absolute URL of path.
func (s *Server) URL(path string) string {
	return s.Server.URL + path
}

// Requests returns the recorded requests for path in arrival order.
func (s *Server) Requests(path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// LastRequest returns the most recent request for path.
func (s *Server) LastRequest(path string) (Request, bool) {
	reqs := s.Requests(path)
	if len(reqs) == 0 {
		return Request{}, false
	}
	return reqs[len(reqs)-1], true
}
