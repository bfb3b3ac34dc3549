package normalize

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/streetlives/util-scripts/internal/geo"
	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/internal/taxonomy"
)

// Region supplies the address parts source rows leave implicit.
type Region struct {
	DefaultCity string `yaml:"default_city" mapstructure:"default_city"`
	State       string `yaml:"state" mapstructure:"state"`
	Country     string `yaml:"country" mapstructure:"country"`
}

// DefaultRegion covers the New York City sources this pipeline was built
// around.
var DefaultRegion = Region{DefaultCity: "New York", State: "NY", Country: "USA"}

// Normalizer turns raw source rows into candidate records, resolving the
// taxonomy label and filling in coordinates and city names as it goes.
type Normalizer struct {
	taxonomy *taxonomy.Resolver
	geo      *geo.Resolver
	region   Region
	log      *zap.Logger
}

// NewNormalizer builds a Normalizer. A zero region falls back to
// DefaultRegion.
func NewNormalizer(tax *taxonomy.Resolver, g *geo.Resolver, region Region) *Normalizer {
	if region == (Region{}) {
		region = DefaultRegion
	}
	return &Normalizer{
		taxonomy: tax,
		geo:      g,
		region:   region,
		log:      zap.L().With(zap.String("component", "normalize")),
	}
}

// Record normalizes one raw row. Errors mean the row cannot be made into a
// trustworthy candidate (unknown taxonomy, no resolvable position) and the
// caller should skip it. Unreadable hours only cost the row its schedule.
func (n *Normalizer) Record(ctx context.Context, raw *model.RawRecord) (*model.CandidateRecord, error) {
	node, err := n.taxonomy.Resolve(raw.FacilityType)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: record %s", raw.ID)
	}

	isClosed := ParseIsClosed(raw.Status)
	note := CleanSentence(raw.AdditionalNotes)

	// The service carries the taxonomy's name; the partner's free-text name
	// identifies the organization.
	rec := &model.CandidateRecord{
		SourceID:     raw.ID,
		LastUpdated:  raw.LastUpdated,
		Name:         node.Name,
		TaxonomyID:   node.ID,
		TaxonomyName: node.Name,
		IsClosed:     isClosed,
		IDRequired:   ParseIDRequired(raw.IDRequired),
	}

	if isClosed != nil && *isClosed {
		// A closure notice belongs to the whole location, not one service.
		rec.Location.Note = note
	} else {
		rec.Note = note
		rec.Hours, err = ParseHours(raw.Hours)
		if err != nil {
			n.log.Warn("could not parse hours, keeping record without a schedule",
				zap.String("recordId", raw.ID),
				zap.String("hours", raw.Hours),
				zap.Error(err))
			rec.Hours = nil
		}
	}

	addr, err := n.address(ctx, raw)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: record %s", raw.ID)
	}
	rec.Location.Address = addr
	rec.Location.OrganizationName = CleanString(raw.Name)
	if rec.Location.OrganizationName == "" {
		return nil, eris.Errorf("normalize: record %s has no name", raw.ID)
	}
	rec.Location.URL = CleanString(raw.Website)
	rec.Location.Phones = ParsePhones(raw.Phone)

	pos, err := n.position(ctx, raw, addr)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: record %s", raw.ID)
	}
	rec.Location.Position = pos

	return rec, nil
}

func (n *Normalizer) address(ctx context.Context, raw *model.RawRecord) (model.Address, error) {
	street := CleanString(StripCitySuffix(raw.Address))
	if street == "" {
		return model.Address{}, eris.New("no street address")
	}

	city, err := n.geo.City(ctx, raw.Zipcode, raw.Neighborhood)
	if err != nil || city == "" {
		if err != nil {
			n.log.Warn("could not resolve city, using regional default",
				zap.String("recordId", raw.ID),
				zap.String("zipcode", raw.Zipcode),
				zap.Error(err))
		}
		city = n.region.DefaultCity
	}

	return model.Address{
		Street:     street,
		City:       city,
		State:      n.region.State,
		PostalCode: raw.Zipcode,
		Country:    n.region.Country,
	}, nil
}

func (n *Normalizer) position(ctx context.Context, raw *model.RawRecord, addr model.Address) (*model.Position, error) {
	if raw.HasCoordinates {
		return &model.Position{Latitude: raw.Latitude, Longitude: raw.Longitude}, nil
	}
	pos, err := n.geo.Position(ctx, addr)
	if err != nil {
		return nil, eris.Wrap(err, "resolve position")
	}
	return &pos, nil
}
