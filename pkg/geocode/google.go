package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/streetlives/util-scripts/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleClient implements Client against the Google Geocoding API.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

type googleResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Geocode implements Client.
func (g *GoogleClient) Geocode(ctx context.Context, address string) (*Result, error) {
	resp, err := g.query(ctx, url.Values{"address": {address}})
	if err != nil {
		return nil, err
	}

	if err := requireExactlyOne(resp, address); err != nil {
		return nil, err
	}

	loc := resp.Results[0].Geometry.Location
	return &Result{
		Latitude:         loc.Lat,
		Longitude:        loc.Lng,
		FormattedAddress: resp.Results[0].FormattedAddress,
	}, nil
}

// CityForPostalCode implements Client. The city is the leading component
// of the formatted address the API returns for the postal code.
func (g *GoogleClient) CityForPostalCode(ctx context.Context, postalCode string) (string, error) {
	resp, err := g.query(ctx, url.Values{
		"components": {"country:US|postal_code:" + postalCode},
	})
	if err != nil {
		return "", err
	}

	if err := requireExactlyOne(resp, postalCode); err != nil {
		return "", err
	}

	city := strings.TrimSpace(strings.SplitN(resp.Results[0].FormattedAddress, ",", 2)[0])
	if city == "" {
		return "", eris.Wrapf(ErrNoResult, "no city in formatted address for %q", postalCode)
	}
	return city, nil
}

func requireExactlyOne(resp *googleResponse, query string) error {
	switch {
	case resp.Status == "ZERO_RESULTS" || len(resp.Results) == 0:
		return eris.Wrapf(ErrNoResult, "%q", query)
	case len(resp.Results) > 1:
		return eris.Wrapf(ErrAmbiguous, "%q yielded %d results", query, len(resp.Results))
	case resp.Status != "OK":
		return eris.Errorf("geocode: status %s for %q", resp.Status, query)
	}
	return nil
}

func (g *GoogleClient) query(ctx context.Context, params url.Values) (*googleResponse, error) {
	if g.apiKey == "" {
		return nil, eris.New("geocode: api key not configured")
	}
	params.Set("key", g.apiKey)
	reqURL := g.baseURL + "?" + params.Encode()

	return resilience.DoVal(ctx, g.retry, "geocode", func(ctx context.Context) (*googleResponse, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "geocode: rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: build request")
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("geocode: status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: read body")
		}

		var parsed googleResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, eris.Wrap(err, "geocode: parse response")
		}
		return &parsed, nil
	})
}
