package webclient

import (
	"context"
	"net/http"
	"time"
)

// WebClient executes HTTP requests against third-party platforms. Probes only
// depend on this interface so the transport (plain net/http or a headless
// browser) can be chosen by configuration.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	Close() error
}

// Request describes one outgoing platform request.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the transport-agnostic result of a Request.
type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// Get is a convenience wrapper for header-less GET requests.
func Get(ctx context.Context, wc WebClient, url string) (*Response, error) {
	return wc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}
