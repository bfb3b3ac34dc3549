package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/streetlives/util-scripts/internal/cache"
	"github.com/streetlives/util-scripts/internal/geo"
	"github.com/streetlives/util-scripts/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve an address through the geocoder and cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Geocoding.Key == "" {
			return eris.New("geocoding API key is required (STREETLIVES_GEOCODING_KEY)")
		}

		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate cache")
		}

		gc := geocode.NewGoogle(cfg.Geocoding.Key,
			geocode.WithBaseURL(cfg.Geocoding.BaseURL),
			geocode.WithRateLimit(cfg.Geocoding.RequestsPerSec))
		resolver := geo.NewResolver(store, gc)

		address := strings.Join(args, " ")
		pos, err := resolver.Locate(ctx, address)
		if err != nil {
			return eris.Wrapf(err, "geocode %q", address)
		}

		fmt.Printf("%s\n%.6f, %.6f\n", address, pos.Latitude, pos.Longitude)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
