// Package directory is the HTTP client for the canonical service
// directory: proximity and id lookups, entity creation, and field-level
// updates. The engine owns none of the directory's schema; everything
// goes through this API.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/internal/resilience"
)

// ErrNotFound is returned for lookups of entities that do not exist.
var ErrNotFound = eris.New("directory: not found")

// API is the directory surface the reconciliation engine consumes.
type API interface {
	GetTaxonomyTree(ctx context.Context) ([]model.TaxonomyNode, error)
	GetLocationsNear(ctx context.Context, pos model.Position, radius float64) ([]model.Location, error)
	// GetLocationByID returns (nil, nil) when the location no longer
	// exists, so stale match-memory entries fall through to re-matching.
	GetLocationByID(ctx context.Context, id string) (*model.Location, error)
	CreateOrganization(ctx context.Context, in model.OrganizationInput) (*model.Organization, error)
	CreateLocation(ctx context.Context, in model.LocationInput) (*model.Location, error)
	CreateService(ctx context.Context, in model.ServiceInput) (*model.Service, error)
	UpdateLocation(ctx context.Context, id string, upd model.LocationUpdate) error
	UpdateService(ctx context.Context, id string, upd model.ServiceUpdate) error
}

// Client implements API over HTTP.
type Client struct {
	baseURL    string
	source     string
	httpClient *http.Client
	retry      resilience.RetryConfig
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSource sets the provenance recorded on writes made by this client.
func WithSource(source string) Option {
	return func(c *Client) {
		c.source = source
	}
}

// WithRetry overrides the retry configuration for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// NewClient creates a directory client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		source:     "ingestion",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetTaxonomyTree implements API.
func (c *Client) GetTaxonomyTree(ctx context.Context) ([]model.TaxonomyNode, error) {
	var tree []model.TaxonomyNode
	if err := c.do(ctx, http.MethodGet, "/taxonomy", nil, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// GetLocationsNear implements API.
func (c *Client) GetLocationsNear(ctx context.Context, pos model.Position, radius float64) ([]model.Location, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%f", pos.Latitude)},
		"longitude": {fmt.Sprintf("%f", pos.Longitude)},
		"radius":    {fmt.Sprintf("%f", radius)},
	}

	var locations []model.Location
	if err := c.do(ctx, http.MethodGet, "/locations?"+params.Encode(), nil, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// GetLocationByID implements API.
func (c *Client) GetLocationByID(ctx context.Context, id string) (*model.Location, error) {
	if id == "" {
		return nil, nil
	}

	var location model.Location
	err := c.do(ctx, http.MethodGet, "/locations/"+url.PathEscape(id), nil, &location)
	if eris.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &location, nil
}

// CreateOrganization implements API.
func (c *Client) CreateOrganization(ctx context.Context, in model.OrganizationInput) (*model.Organization, error) {
	var org model.Organization
	if err := c.do(ctx, http.MethodPost, "/organizations", in, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// CreateLocation implements API.
func (c *Client) CreateLocation(ctx context.Context, in model.LocationInput) (*model.Location, error) {
	var location model.Location
	if err := c.do(ctx, http.MethodPost, "/locations", in, &location); err != nil {
		return nil, err
	}
	return &location, nil
}

// CreateService implements API.
func (c *Client) CreateService(ctx context.Context, in model.ServiceInput) (*model.Service, error) {
	var service model.Service
	if err := c.do(ctx, http.MethodPost, "/services", in, &service); err != nil {
		return nil, err
	}
	return &service, nil
}

// UpdateLocation implements API.
func (c *Client) UpdateLocation(ctx context.Context, id string, upd model.LocationUpdate) error {
	return c.do(ctx, http.MethodPatch, "/locations/"+url.PathEscape(id), upd, nil)
}

// UpdateService implements API.
func (c *Client) UpdateService(ctx context.Context, id string, upd model.ServiceUpdate) error {
	return c.do(ctx, http.MethodPatch, "/services/"+url.PathEscape(id), upd, nil)
}

// do performs one JSON request with retries on transient failures and
// decodes the response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return eris.Wrapf(err, "directory: marshal %s %s", method, path)
		}
	}

	return resilience.Do(ctx, c.retry, "directory "+method+" "+path, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return eris.Wrapf(err, "directory: build %s %s", method, path)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("X-Data-Source", c.source)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return eris.Wrapf(err, "directory: %s %s", method, path)
		}
		defer resp.Body.Close() //nolint:errcheck

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return eris.Wrapf(ErrNotFound, "%s %s", method, path)
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			return resilience.NewTransientError(
				eris.Errorf("directory: %s %s returned status %d", method, path, resp.StatusCode),
				resp.StatusCode,
			)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return eris.Errorf("directory: %s %s returned status %d", method, path, resp.StatusCode)
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return eris.Wrapf(err, "directory: decode %s %s", method, path)
		}
		return nil
	})
}
