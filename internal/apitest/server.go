// Package apitest provides a fake management API for tests
package apitest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Device code endpoint paths served by the fake API
const (
	VerifyPath   = "/device/verify"
	ActivatePath = "/device/activate"
)

// Request is a recorded call
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Reply is the canned response for a route
type Reply struct {
	Status int
	Body   string
}

// Server is an httptest server with scripted replies per path
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	replies  map[string]Reply
	requests []Request
}

// NewServer starts a fake API below prefix (e.g. "" or "/api/v2"). It is
// closed when the test ends.
func NewServer(t testing.TB, prefix string) *Server {
	t.Helper()

	s := &Server{
		replies: map[string]Reply{
			VerifyPath:   {Status: http.StatusOK},
			ActivatePath: {Status: http.StatusNoContent},
		},
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	routes := func(r chi.Router) {
		r.Post(VerifyPath, s.handle(VerifyPath))
		r.Post(ActivatePath, s.handle(ActivatePath))
	}
	if prefix == "" {
		routes(router)
	} else {
		router.Route(prefix, routes)
	}

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)

	return s
}

// Reply scripts the response for path
func (s *Server) Reply(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[path] = Reply{Status: status, Body: body}
}

// Requests returns a copy of the recorded calls
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) handle(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "reading body", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		reply := s.replies[path]
		s.mu.Unlock()

		if reply.Body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(reply.Status)
		if reply.Body != "" {
			_, _ = io.WriteString(w, reply.Body)
		}
	}
}
