package geo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetlives/util-scripts/internal/cache"
	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/pkg/geocode"
)

// fakeGeocoder counts calls and returns canned results.
type fakeGeocoder struct {
	geocodeCalls int
	cityCalls    int
	result       *geocode.Result
	city         string
	err          error
}

func (f *fakeGeocoder) Geocode(_ context.Context, _ string) (*geocode.Result, error) {
	f.geocodeCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeGeocoder) CityForPostalCode(_ context.Context, _ string) (string, error) {
	f.cityCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.city, nil
}

func newTestResolver(t *testing.T, client geocode.Client) *Resolver {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "geo.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return NewResolver(store, client)
}

func testAddr() model.Address {
	return model.Address{
		Street:     "123 Main St",
		City:       "New York",
		State:      "NY",
		PostalCode: "10001",
	}
}

func TestPosition(t *testing.T) {
	t.Run("miss queries once then caches", func(t *testing.T) {
		fake := &fakeGeocoder{result: &geocode.Result{Latitude: 40.75, Longitude: -73.99}}
		r := newTestResolver(t, fake)
		ctx := context.Background()

		pos, err := r.Position(ctx, testAddr())
		require.NoError(t, err)
		assert.Equal(t, 40.75, pos.Latitude)
		assert.Equal(t, 1, fake.geocodeCalls)

		// Second lookup is served from the cache.
		pos, err = r.Position(ctx, testAddr())
		require.NoError(t, err)
		assert.Equal(t, 40.75, pos.Latitude)
		assert.Equal(t, 1, fake.geocodeCalls)
	})

	t.Run("free-form lookups share the cache with structured ones", func(t *testing.T) {
		fake := &fakeGeocoder{result: &geocode.Result{Latitude: 40.75, Longitude: -73.99}}
		r := newTestResolver(t, fake)
		ctx := context.Background()

		pos, err := r.Locate(ctx, testAddr().OneLine())
		require.NoError(t, err)
		assert.Equal(t, 40.75, pos.Latitude)
		assert.Equal(t, 1, fake.geocodeCalls)

		// A structured lookup for the same address is a cache hit.
		_, err = r.Position(ctx, testAddr())
		require.NoError(t, err)
		assert.Equal(t, 1, fake.geocodeCalls)
	})

	t.Run("ambiguous result fails the lookup", func(t *testing.T) {
		fake := &fakeGeocoder{err: geocode.ErrAmbiguous}
		r := newTestResolver(t, fake)

		_, err := r.Position(context.Background(), testAddr())
		assert.True(t, eris.Is(err, geocode.ErrAmbiguous))
	})
}

func TestCity(t *testing.T) {
	t.Run("reverse geocode cached under both keys", func(t *testing.T) {
		fake := &fakeGeocoder{city: "Brooklyn"}
		r := newTestResolver(t, fake)
		ctx := context.Background()

		city, err := r.City(ctx, "11201", "Dumbo")
		require.NoError(t, err)
		assert.Equal(t, "Brooklyn", city)
		assert.Equal(t, 1, fake.cityCalls)

		// Postal-code key hit.
		city, err = r.City(ctx, "11201", "")
		require.NoError(t, err)
		assert.Equal(t, "Brooklyn", city)
		assert.Equal(t, 1, fake.cityCalls)

		// Neighborhood key hit.
		city, err = r.City(ctx, "", "Dumbo")
		require.NoError(t, err)
		assert.Equal(t, "Brooklyn", city)
		assert.Equal(t, 1, fake.cityCalls)
	})

	t.Run("nothing to resolve from", func(t *testing.T) {
		r := newTestResolver(t, &fakeGeocoder{})
		_, err := r.City(context.Background(), "", "")
		assert.Error(t, err)
	})
}
