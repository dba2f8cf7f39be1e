package webclient

import "time"

// Backend names a WebClient implementation.
type Backend string

const (
	BackendNetHTTP  Backend = "nethttp"
	BackendChromedp Backend = "chromedp"
)

// Config selects and tunes the WebClient backend.
type Config struct {
	// Backend picks the transport; empty means nethttp.
	Backend Backend

	// Timeout bounds a single request end to end.
	Timeout time.Duration

	// UserAgents is a pool rotated across requests. When empty a stock
	// browser user agent is used.
	UserAgents []string

	// IdleAfter is how long the chromedp backend waits for network silence
	// before snapshotting the rendered DOM.
	IdleAfter time.Duration

	// Headless controls whether the chromedp backend shows a browser window.
	Headless bool
}

// DefaultConfig returns settings suitable for unauthenticated platform probes.
func DefaultConfig() Config {
	return Config{
		Backend: BackendNetHTTP,
		Timeout: 30 * time.Second,
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.0 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
		},
		IdleAfter: 2 * time.Second,
		Headless:  true,
	}
}
