package match

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/internal/normalize"
	"github.com/streetlives/util-scripts/internal/prompt"
)

// DefaultRadius is the nearby-location search radius in meters. It is
// deliberately tight: two soup kitchens on the same block are usually
// different organizations, not duplicates.
const DefaultRadius = 30

// Directory is the subset of the directory API the matcher queries.
type Directory interface {
	GetLocationByID(ctx context.Context, id string) (*model.Location, error)
	GetLocationsNear(ctx context.Context, pos model.Position, radiusMeters float64) ([]model.Location, error)
}

// Result holds whatever existing entities were found for a candidate.
// Both fields nil means the record is new. Location set with Service nil
// means a new service should be created under the matched location.
type Result struct {
	Location *model.Location
	Service  *model.Service
}

// Matcher resolves candidate records against the directory.
type Matcher struct {
	dir      Directory
	memory   *Memory
	ask      prompt.Disambiguator
	radius   float64
	distinct map[string][]string
	log      *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithRadius overrides the nearby-search radius in meters.
func WithRadius(meters float64) Option {
	return func(m *Matcher) { m.radius = meters }
}

// WithKnownDistinctOrgs seeds pairs of organizations known to sit near
// each other yet be different, keyed by folded organization name.
func WithKnownDistinctOrgs(pairs map[string][]string) Option {
	return func(m *Matcher) {
		for name, others := range pairs {
			folded := make([]string, 0, len(others))
			for _, o := range others {
				folded = append(folded, normalize.FoldName(o))
			}
			m.distinct[normalize.FoldName(name)] = folded
		}
	}
}

// New creates a Matcher over the given directory, memory and prompt.
func New(dir Directory, memory *Memory, ask prompt.Disambiguator, opts ...Option) *Matcher {
	m := &Matcher{
		dir:      dir,
		memory:   memory,
		ask:      ask,
		radius:   DefaultRadius,
		distinct: map[string][]string{},
		log:      zap.L().With(zap.String("component", "match")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExistingRecords finds the directory location and service the candidate
// already corresponds to, if any. A zero Result is a valid outcome and
// means the record has no counterpart yet.
func (m *Matcher) ExistingRecords(ctx context.Context, rec *model.CandidateRecord) (Result, error) {
	entry := m.memory.Get(rec.SourceID)

	if entry.LocationID != "" {
		loc, err := m.dir.GetLocationByID(ctx, entry.LocationID)
		if err != nil {
			return Result{}, eris.Wrapf(err, "match: fetch remembered location %s", entry.LocationID)
		}
		if loc != nil {
			return m.resolveServices(ctx, loc, entry, rec)
		}
		// The remembered location no longer exists. Re-match from scratch
		// rather than failing the record.
		m.log.Warn("remembered location no longer exists, re-matching",
			zap.String("sourceId", rec.SourceID),
			zap.String("locationId", entry.LocationID))
	}

	loc, err := m.matchLocation(ctx, rec, entry)
	if err != nil || loc == nil {
		return Result{}, err
	}
	return m.resolveServices(ctx, loc, entry, rec)
}

func (m *Matcher) resolveServices(ctx context.Context, loc *model.Location, entry model.MatchEntry, rec *model.CandidateRecord) (Result, error) {
	if entry.ServiceID != "" {
		for i := range loc.Services {
			if loc.Services[i].ID == entry.ServiceID {
				return Result{Location: loc, Service: &loc.Services[i]}, nil
			}
		}
		m.log.Warn("remembered service no longer exists at location",
			zap.String("sourceId", rec.SourceID),
			zap.String("serviceId", entry.ServiceID))
	}
	svc, err := m.matchService(ctx, loc, rec)
	if err != nil {
		return Result{}, err
	}
	return Result{Location: loc, Service: svc}, nil
}

func (m *Matcher) matchLocation(ctx context.Context, rec *model.CandidateRecord, entry model.MatchEntry) (*model.Location, error) {
	if rec.Location.Position == nil {
		return nil, eris.Errorf("match: candidate %s has no position", rec.SourceID)
	}

	nearby, err := m.dir.GetLocationsNear(ctx, *rec.Location.Position, m.radius)
	if err != nil {
		return nil, eris.Wrap(err, "match: query nearby locations")
	}
	if len(nearby) == 0 {
		return nil, nil
	}

	orgName := normalize.FoldName(rec.Location.OrganizationName)
	remembered := normalize.FoldName(entry.OrgName)
	for i := range nearby {
		name := normalize.FoldName(nearby[i].Organization.Name)
		if name == orgName || (remembered != "" && name == remembered) {
			return &nearby[i], nil
		}
	}

	potentials := m.filterKnownDistinct(nearby, orgName, entry)
	if len(potentials) == 0 {
		return nil, nil
	}

	options := make([]string, len(potentials))
	for i, loc := range potentials {
		options[i] = fmt.Sprintf("%s (%s)", loc.Organization.Name, loc.Address.OneLine())
	}
	question := fmt.Sprintf("Is %q at %s the same as any of these nearby locations?",
		rec.Location.OrganizationName, rec.Location.Address.OneLine())
	choice, err := m.ask.Choose(ctx, question, options)
	if err != nil {
		return nil, eris.Wrap(err, "match: disambiguate location")
	}
	if choice == prompt.None {
		names := make([]string, len(potentials))
		for i, loc := range potentials {
			names[i] = loc.Organization.Name
		}
		if err := m.memory.RecordNearbyButDifferent(ctx, rec.SourceID, names); err != nil {
			return nil, err
		}
		return nil, nil
	}
	// A confirmed answer is persisted before any directory write happens;
	// an aborted record must not re-ask the same question.
	chosen := &potentials[choice]
	if err := m.memory.RecordMatch(ctx, rec.SourceID, chosen, nil); err != nil {
		return nil, err
	}
	return chosen, nil
}

func (m *Matcher) filterKnownDistinct(nearby []model.Location, orgName string, entry model.MatchEntry) []model.Location {
	ruledOut := make(map[string]bool, len(entry.NearbyButDifferentOrgs))
	for _, name := range entry.NearbyButDifferentOrgs {
		ruledOut[normalize.FoldName(name)] = true
	}
	for _, name := range m.distinct[orgName] {
		ruledOut[name] = true
	}

	var potentials []model.Location
	for _, loc := range nearby {
		if !ruledOut[normalize.FoldName(loc.Organization.Name)] {
			potentials = append(potentials, loc)
		}
	}
	return potentials
}

func (m *Matcher) matchService(ctx context.Context, loc *model.Location, rec *model.CandidateRecord) (*model.Service, error) {
	if len(loc.Services) == 0 {
		return nil, nil
	}

	name := normalize.FoldName(rec.Name)
	for i := range loc.Services {
		if normalize.FoldName(loc.Services[i].Name) == name {
			return &loc.Services[i], nil
		}
	}

	var sameTaxonomy []*model.Service
	for i := range loc.Services {
		if loc.Services[i].TaxonomyID == rec.TaxonomyID {
			sameTaxonomy = append(sameTaxonomy, &loc.Services[i])
		}
	}
	switch len(sameTaxonomy) {
	case 0:
		return nil, nil
	case 1:
		return sameTaxonomy[0], nil
	}

	options := make([]string, len(sameTaxonomy))
	for i, svc := range sameTaxonomy {
		options[i] = svc.Name
	}
	question := fmt.Sprintf("Which service at %q is %q?", loc.Organization.Name, rec.Name)
	choice, err := m.ask.Choose(ctx, question, options)
	if err != nil {
		return nil, eris.Wrap(err, "match: disambiguate service")
	}
	if choice == prompt.None {
		return nil, nil
	}
	if err := m.memory.RecordMatch(ctx, rec.SourceID, nil, sameTaxonomy[choice]); err != nil {
		return nil, err
	}
	return sameTaxonomy[choice], nil
}
