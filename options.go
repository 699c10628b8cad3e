package fetchcascade

import (
	"net/http"
	"time"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// WithBaseURL sets the fetchcascade server's base URL (e.g. "http://localhost:8080").
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithAPIKey sets the bearer token sent with every request, matching
// internal/transport/chi.BearerAuthMiddleware's expectations.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithHTTPClient overrides the default *http.Client, e.g. to configure a
// custom transport or proxy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout applied when the caller's
// context carries no deadline of its own. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}
