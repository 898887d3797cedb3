package api

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rickgao/market-pulse/internal/version"
)

// Client is a JSON-over-HTTP client for one upstream service.
type Client struct {
	name        string
	baseURL     string
	fallbackURL string
	apiKey      string
	headers     http.Header
	httpClient  *http.Client
	limiter     *rate.Limiter
	signer      Signer
	logger      *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// Signer returns per-request authentication headers for the URL path.
type Signer interface {
	Sign(method, path string) (http.Header, error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. name labels errors and logs.
func NewClient(name, baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		headers: http.Header{},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("upstream", name)
	return c
}

// Name returns the service name the client was created with.
func (c *Client) Name() string {
	return c.name
}

// BaseURL returns the primary base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outgoing requests to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithFallbackURL sets a secondary host tried once after the primary fails.
func WithFallbackURL(u string) ClientOption {
	return func(c *Client) {
		c.fallbackURL = u
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithSigner signs every request, e.g. with Kalshi RSA-PSS access headers.
func WithSigner(s Signer) ClientOption {
	return func(c *Client) {
		c.signer = s
	}
}

func userAgent() string {
	return "market-pulse/" + version.Version
}
