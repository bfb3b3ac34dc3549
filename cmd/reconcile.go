package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/streetlives/util-scripts/internal/cache"
	"github.com/streetlives/util-scripts/internal/geo"
	"github.com/streetlives/util-scripts/internal/match"
	"github.com/streetlives/util-scripts/internal/merge"
	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/internal/normalize"
	"github.com/streetlives/util-scripts/internal/prompt"
	"github.com/streetlives/util-scripts/internal/reconcile"
	"github.com/streetlives/util-scripts/internal/source"
	"github.com/streetlives/util-scripts/internal/taxonomy"
	"github.com/streetlives/util-scripts/pkg/directory"
	"github.com/streetlives/util-scripts/pkg/geocode"
)

var (
	reconcileFile           string
	reconcileSheet          string
	reconcileNonInteractive bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a partner export against the directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Directory.BaseURL == "" {
			return eris.New("directory base URL is required (STREETLIVES_DIRECTORY_BASE_URL)")
		}
		if cfg.Geocoding.Key == "" {
			return eris.New("geocoding API key is required (STREETLIVES_GEOCODING_KEY)")
		}
		file := reconcileFile
		if file == "" {
			file = cfg.Source.Path
		}
		if file == "" {
			return eris.New("an export file is required (--file or STREETLIVES_SOURCE_PATH)")
		}
		sheet := reconcileSheet
		if sheet == "" {
			sheet = cfg.Source.SheetName
		}

		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate cache")
		}

		dir := directory.NewClient(cfg.Directory.BaseURL,
			directory.WithSource(cfg.Directory.Source))

		// The taxonomy tree and the export are independent inputs; fetch
		// them concurrently before the sequential run starts.
		var (
			tree []model.TaxonomyNode
			rows []model.RawRecord
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			tree, err = dir.GetTaxonomyTree(gctx)
			return err
		})
		g.Go(func() error {
			records, err := source.ReadFile(file, source.Options{SheetName: sheet})
			if err != nil {
				return err
			}
			maxAge := time.Duration(cfg.Source.MaxAgeDays) * 24 * time.Hour
			rows = source.Filter(records, time.Now(), maxAge)
			return nil
		})
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "load inputs")
		}

		aliases, err := taxonomy.LoadAliases(cfg.Taxonomy.AliasesPath)
		if err != nil {
			return eris.Wrap(err, "load taxonomy aliases")
		}
		distinct, err := match.LoadKnownDistinct(cfg.Match.KnownDistinctPath)
		if err != nil {
			return eris.Wrap(err, "load known-distinct seed")
		}
		memory, err := match.LoadMemory(ctx, store)
		if err != nil {
			return eris.Wrap(err, "load match memory")
		}

		var ask prompt.Disambiguator = prompt.NewTerminal()
		if reconcileNonInteractive || cfg.Prompt.NonInteractive {
			ask = prompt.AutoNone{}
		}

		gc := geocode.NewGoogle(cfg.Geocoding.Key,
			geocode.WithBaseURL(cfg.Geocoding.BaseURL),
			geocode.WithRateLimit(cfg.Geocoding.RequestsPerSec))
		norm := normalize.NewNormalizer(
			taxonomy.NewResolver(tree, aliases),
			geo.NewResolver(store, gc),
			normalize.Region{
				DefaultCity: cfg.Region.DefaultCity,
				State:       cfg.Region.State,
				Country:     cfg.Region.Country,
			})
		matcher := match.New(dir, memory, ask,
			match.WithRadius(cfg.Match.RadiusMeters),
			match.WithKnownDistinctOrgs(distinct))

		driver := reconcile.NewDriver(norm, matcher, merge.New(ask), dir, memory)
		summary, err := driver.Run(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "reconcile")
		}

		zap.L().Info("reconcile complete",
			zap.String("file", file),
			zap.Int("records", len(rows)))
		fmt.Printf("created %d, updated %d, unchanged %d, skipped %d\n",
			summary.Created, summary.Updated, summary.Unchanged, summary.Skipped)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileFile, "file", "", "path to XLSX export")
	reconcileCmd.Flags().StringVar(&reconcileSheet, "sheet", "", "sheet name (default: first sheet)")
	reconcileCmd.Flags().BoolVar(&reconcileNonInteractive, "non-interactive", false, "defer ambiguous matches instead of prompting")
	rootCmd.AddCommand(reconcileCmd)
}
