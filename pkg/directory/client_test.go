package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/internal/resilience"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL,
		WithSource("test-import"),
		WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}),
	)
}

func TestGetLocationByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/locations/loc-1", r.URL.Path)
			_ = json.NewEncoder(w).Encode(model.Location{
				ID:           "loc-1",
				Organization: model.Organization{ID: "org-1", Name: "CAMBA"},
			})
		})

		loc, err := client.GetLocationByID(context.Background(), "loc-1")
		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.Equal(t, "CAMBA", loc.Organization.Name)
	})

	t.Run("deleted location is nil, not an error", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		loc, err := client.GetLocationByID(context.Background(), "gone")
		require.NoError(t, err)
		assert.Nil(t, loc)
	})

	t.Run("empty id short-circuits", func(t *testing.T) {
		client := newTestServer(t, func(http.ResponseWriter, *http.Request) {
			t.Fatal("no request expected")
		})

		loc, err := client.GetLocationByID(context.Background(), "")
		require.NoError(t, err)
		assert.Nil(t, loc)
	})
}

func TestGetLocationsNear(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("latitude"))
		assert.NotEmpty(t, r.URL.Query().Get("radius"))
		_ = json.NewEncoder(w).Encode([]model.Location{{ID: "loc-1"}, {ID: "loc-2"}})
	})

	locations, err := client.GetLocationsNear(context.Background(), model.Position{Latitude: 40.7, Longitude: -74}, 30)
	require.NoError(t, err)
	assert.Len(t, locations, 2)
}

func TestCreateAndUpdate(t *testing.T) {
	t.Run("create service posts payload", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/services", r.URL.Path)
			assert.Equal(t, "test-import", r.Header.Get("X-Data-Source"))

			var in model.ServiceInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "Food Pantry", in.Name)

			_ = json.NewEncoder(w).Encode(model.Service{ID: "svc-1", Name: in.Name})
		})

		svc, err := client.CreateService(context.Background(), model.ServiceInput{
			LocationID: "loc-1",
			Name:       "Food Pantry",
			TaxonomyID: "tax-pantry",
		})
		require.NoError(t, err)
		assert.Equal(t, "svc-1", svc.ID)
	})

	t.Run("update location patches", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/locations/loc-1", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})

		url := "https://example.org"
		err := client.UpdateLocation(context.Background(), "loc-1", model.LocationUpdate{URL: &url})
		require.NoError(t, err)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		calls := 0
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode([]model.TaxonomyNode{{ID: "tax-1", Name: "Food"}})
		})

		tree, err := client.GetTaxonomyTree(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		require.Len(t, tree, 1)
		assert.Equal(t, "Food", tree[0].Name)
	})
}
