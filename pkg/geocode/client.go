// Package geocode wraps the Google Geocoding API for the two lookups the
// engine needs: coordinates for a full address string, and the city a
// postal code belongs to.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/streetlives/util-scripts/internal/resilience"
)

// ErrNoResult is returned when the geocoder finds nothing for the query.
var ErrNoResult = eris.New("geocode: no result")

// ErrAmbiguous is returned when the geocoder finds more than one result.
// Callers require exactly one; an ambiguous address is as unusable as a
// missing one.
var ErrAmbiguous = eris.New("geocode: ambiguous result")

// Result is a resolved coordinate pair.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
}

// Client geocodes addresses and postal codes.
type Client interface {
	// Geocode resolves a full address string to exactly one coordinate
	// pair. Zero results yields ErrNoResult, multiple ErrAmbiguous.
	Geocode(ctx context.Context, address string) (*Result, error)

	// CityForPostalCode resolves a postal code to the city it belongs to.
	CityForPostalCode(ctx context.Context, postalCode string) (string, error)
}

// Option configures the Google client.
type Option func(*GoogleClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *GoogleClient) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(baseURL string) Option {
	return func(g *GoogleClient) {
		g.baseURL = baseURL
	}
}

// WithRateLimit sets the requests-per-second limit on API calls.
func WithRateLimit(rps float64) Option {
	return func(g *GoogleClient) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetry overrides the retry configuration for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *GoogleClient) {
		g.retry = cfg
	}
}

// NewGoogle creates a Google Geocoding API client.
func NewGoogle(apiKey string, opts ...Option) *GoogleClient {
	g := &GoogleClient{
		apiKey:     apiKey,
		baseURL:    googleGeocodeURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 1),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
