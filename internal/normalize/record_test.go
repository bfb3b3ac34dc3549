package normalize

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetlives/util-scripts/internal/cache"
	"github.com/streetlives/util-scripts/internal/geo"
	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/internal/taxonomy"
	"github.com/streetlives/util-scripts/pkg/geocode"
)

type stubGeocoder struct {
	geocodes int
}

func (s *stubGeocoder) Geocode(_ context.Context, _ string) (*geocode.Result, error) {
	s.geocodes++
	return &geocode.Result{Latitude: 40.71, Longitude: -73.99}, nil
}

func (s *stubGeocoder) CityForPostalCode(_ context.Context, _ string) (string, error) {
	return "Brooklyn", nil
}

func testNormalizer(t *testing.T, gc geocode.Client) *Normalizer {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	tax := taxonomy.NewResolver([]model.TaxonomyNode{
		{ID: "tax-food", Name: "Food", Children: []model.TaxonomyNode{
			{ID: "tax-pantry", Name: "Food Pantry"},
			{ID: "tax-meals", Name: "Hot Meals"},
		}},
	}, map[string]string{"soup kitchen": "Hot Meals"})

	return NewNormalizer(tax, geo.NewResolver(store, gc), Region{})
}

func rawRow() *model.RawRecord {
	return &model.RawRecord{
		ID:              "rec-1",
		Name:            " St. Mary's ",
		Phone:           "(212) 555-1234 ext 302",
		Address:         "123 Lexington Ave, New York, NY 10016",
		Zipcode:         "10016",
		Hours:           "Mon-Fri: 9-5PM",
		LastUpdated:     time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		Status:          "open",
		FacilityType:    "Food Pantry",
		AdditionalNotes: "bring your own bags",
		IDRequired:      "yes",
		Website:         "https://stmarys.example.org",
		Latitude:        40.744,
		Longitude:       -73.981,
		HasCoordinates:  true,
	}
}

func TestNormalizerRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes a complete open row", func(t *testing.T) {
		stub := &stubGeocoder{}
		n := testNormalizer(t, stub)

		rec, err := n.Record(ctx, rawRow())
		require.NoError(t, err)

		assert.Equal(t, "rec-1", rec.SourceID)
		assert.Equal(t, "Food Pantry", rec.Name)
		assert.Equal(t, "tax-pantry", rec.TaxonomyID)
		require.NotNil(t, rec.IsClosed)
		assert.False(t, *rec.IsClosed)
		require.NotNil(t, rec.IDRequired)
		assert.True(t, *rec.IDRequired)
		assert.Len(t, rec.Hours, 5)
		assert.Equal(t, "09:00", rec.Hours[0].OpensAt)
		assert.Equal(t, "17:00", rec.Hours[0].ClosesAt)
		assert.Equal(t, "bring your own bags", rec.Note)
		assert.Empty(t, rec.Location.Note)

		assert.Equal(t, "St. Mary's", rec.Location.OrganizationName)
		assert.Equal(t, "123 Lexington Ave", rec.Location.Address.Street)
		assert.Equal(t, "Brooklyn", rec.Location.Address.City)
		assert.Equal(t, "NY", rec.Location.Address.State)
		assert.Equal(t, "10016", rec.Location.Address.PostalCode)
		require.Len(t, rec.Location.Phones, 1)
		assert.Equal(t, "302", rec.Location.Phones[0].Extension)

		require.NotNil(t, rec.Location.Position)
		assert.Equal(t, 40.744, rec.Location.Position.Latitude)
		assert.Zero(t, stub.geocodes, "rows with coordinates must not be geocoded")
	})

	t.Run("closed rows put the note on the location and skip hours", func(t *testing.T) {
		n := testNormalizer(t, &stubGeocoder{})
		raw := rawRow()
		raw.Status = "closed"
		raw.Hours = "call for hours"

		rec, err := n.Record(ctx, raw)
		require.NoError(t, err)
		require.NotNil(t, rec.IsClosed)
		assert.True(t, *rec.IsClosed)
		assert.Empty(t, rec.Hours)
		assert.Empty(t, rec.Note)
		assert.Equal(t, "bring your own bags", rec.Location.Note)
	})

	t.Run("taxonomy aliases resolve before the tree", func(t *testing.T) {
		n := testNormalizer(t, &stubGeocoder{})
		raw := rawRow()
		raw.FacilityType = "Soup Kitchen"

		rec, err := n.Record(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, "tax-meals", rec.TaxonomyID)
		assert.Equal(t, "Hot Meals", rec.Name)
	})

	t.Run("unknown taxonomy label fails the row", func(t *testing.T) {
		n := testNormalizer(t, &stubGeocoder{})
		raw := rawRow()
		raw.FacilityType = "Moon Base"

		_, err := n.Record(ctx, raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, taxonomy.ErrUnknownTaxonomy)
	})

	t.Run("unparsable hours keep the row with an empty schedule", func(t *testing.T) {
		n := testNormalizer(t, &stubGeocoder{})
		raw := rawRow()
		raw.Hours = "call for hours"

		rec, err := n.Record(ctx, raw)
		require.NoError(t, err)
		assert.Empty(t, rec.Hours)
		assert.Equal(t, "tax-pantry", rec.TaxonomyID)
	})

	t.Run("missing coordinates are resolved through the geocoder", func(t *testing.T) {
		stub := &stubGeocoder{}
		n := testNormalizer(t, stub)
		raw := rawRow()
		raw.HasCoordinates = false
		raw.Latitude = 0
		raw.Longitude = 0

		rec, err := n.Record(ctx, raw)
		require.NoError(t, err)
		require.NotNil(t, rec.Location.Position)
		assert.Equal(t, 40.71, rec.Location.Position.Latitude)
		assert.Equal(t, 1, stub.geocodes)
	})

	t.Run("missing street address fails the row", func(t *testing.T) {
		n := testNormalizer(t, &stubGeocoder{})
		raw := rawRow()
		raw.Address = ""

		_, err := n.Record(ctx, raw)
		require.Error(t, err)
	})
}
