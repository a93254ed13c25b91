package rest

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout bounds every request when no HTTP client is supplied
	DefaultTimeout = 10 * time.Second

	// Version is reported in the default User-Agent
	Version = "0.3.0"
)

// Options configures a Client
type Options struct {
	// BaseURL of the API, e.g. https://tenant.example.com/api/v2
	BaseURL string

	// Headers are sent with every request
	Headers map[string]string

	// TokenSource, when set, supplies the Authorization header and takes
	// precedence over an Authorization entry in Headers
	TokenSource oauth2.TokenSource

	// HTTPClient overrides the default client
	HTTPClient *http.Client

	// Logger receives debug output for each call
	Logger *zap.Logger

	// Observer is notified after each call
	Observer Observer

	// UserAgent overrides the default User-Agent header
	UserAgent string
}

// RequestInfo describes one completed call
type RequestInfo struct {
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Observer receives a report for every completed call
type Observer interface {
	ObserveRequest(info RequestInfo)
}

func defaultUserAgent() string {
	return "devicecode-go/" + Version
}
