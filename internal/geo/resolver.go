// Package geo resolves addresses to coordinates and postal codes or
// neighborhoods to city names, backed by durable caches so repeated runs
// against the same input never re-query the geocoding service.
package geo

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/streetlives/util-scripts/internal/cache"
	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/pkg/geocode"
)

// Resolver answers position and city lookups, cache-first.
type Resolver struct {
	store  *cache.Store
	client geocode.Client
	log    *zap.Logger
}

// NewResolver creates a Resolver over the given cache store and geocoding
// client.
func NewResolver(store *cache.Store, client geocode.Client) *Resolver {
	return &Resolver{
		store:  store,
		client: client,
		log:    zap.L().With(zap.String("component", "geo_resolver")),
	}
}

// Position resolves an address to coordinates. The exact composed address
// string is the cache key; on a miss exactly one geocode result is
// required (ErrNoResult or ErrAmbiguous otherwise, which skips the record,
// not the run), and the result is persisted before returning.
func (r *Resolver) Position(ctx context.Context, addr model.Address) (model.Position, error) {
	return r.Locate(ctx, addr.OneLine())
}

// Locate is Position for a free-form address string. Lookups made here
// warm the same cache a reconciliation run reads.
func (r *Resolver) Locate(ctx context.Context, key string) (model.Position, error) {
	var cached model.Position
	found, err := r.store.Get(ctx, cache.NSPositions, key, &cached)
	if err != nil {
		return model.Position{}, err
	}
	if found {
		r.log.Debug("position cache hit", zap.String("address", key))
		return cached, nil
	}

	res, err := r.client.Geocode(ctx, key)
	if err != nil {
		return model.Position{}, eris.Wrapf(err, "geo: position for %q", key)
	}

	pos := model.Position{Latitude: res.Latitude, Longitude: res.Longitude}
	if err := r.store.Put(ctx, cache.NSPositions, key, pos); err != nil {
		return model.Position{}, err
	}

	r.log.Info("resolved address",
		zap.String("address", key),
		zap.Float64("lat", pos.Latitude),
		zap.Float64("lng", pos.Longitude),
	)
	return pos, nil
}

// City resolves a postal code or neighborhood to a city name. An exact
// postal-code cache hit wins, then a neighborhood hit, then one reverse
// geocode keyed on the postal code; the result is cached under both keys
// that were provided.
func (r *Resolver) City(ctx context.Context, postalCode, neighborhood string) (string, error) {
	var city string

	if postalCode != "" {
		found, err := r.store.Get(ctx, cache.NSZipcodes, postalCode, &city)
		if err != nil {
			return "", err
		}
		if found {
			return city, nil
		}
	}

	if neighborhood != "" {
		found, err := r.store.Get(ctx, cache.NSNeighborhoods, neighborhood, &city)
		if err != nil {
			return "", err
		}
		if found {
			return city, nil
		}
	}

	if postalCode == "" {
		return "", eris.New("geo: no postal code to resolve city from")
	}

	city, err := r.client.CityForPostalCode(ctx, postalCode)
	if err != nil {
		return "", eris.Wrapf(err, "geo: city for %q", postalCode)
	}

	if err := r.store.Put(ctx, cache.NSZipcodes, postalCode, city); err != nil {
		return "", err
	}
	if neighborhood != "" {
		if err := r.store.Put(ctx, cache.NSNeighborhoods, neighborhood, city); err != nil {
			return "", err
		}
	}

	r.log.Info("resolved city",
		zap.String("postal_code", postalCode),
		zap.String("city", city),
	)
	return city, nil
}
