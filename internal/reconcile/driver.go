// Package reconcile runs the end-to-end pipeline: normalize each raw source
// row, match it against the directory, then create or update entities under
// the merge policy. Records are processed strictly one at a time so that
// human disambiguation prompts arrive in order and every answer is durably
// remembered before the next record starts.
package reconcile

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/streetlives/util-scripts/internal/match"
	"github.com/streetlives/util-scripts/internal/merge"
	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/pkg/directory"
)

// Normalizer turns raw rows into candidate records.
type Normalizer interface {
	Record(ctx context.Context, raw *model.RawRecord) (*model.CandidateRecord, error)
}

// Matcher finds the directory entities a candidate already represents.
type Matcher interface {
	ExistingRecords(ctx context.Context, rec *model.CandidateRecord) (match.Result, error)
}

// Summary counts what a run did. Skipped records are the ones whose errors
// were confined to the record itself; anything counted there has a warning
// in the log explaining why.
type Summary struct {
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
}

// Driver executes one reconciliation run.
type Driver struct {
	norm    Normalizer
	matcher Matcher
	policy  *merge.Policy
	dir     directory.API
	memory  *match.Memory
	log     *zap.Logger
}

// NewDriver wires the pipeline stages together.
func NewDriver(norm Normalizer, matcher Matcher, policy *merge.Policy, dir directory.API, memory *match.Memory) *Driver {
	return &Driver{
		norm:    norm,
		matcher: matcher,
		policy:  policy,
		dir:     dir,
		memory:  memory,
		log:     zap.L().With(zap.String("component", "reconcile")),
	}
}

// Run processes the records sequentially. Per-record failures are logged
// and counted as skipped; a failure to persist match memory aborts the run,
// since continuing would risk duplicating entities on the next run.
func (d *Driver) Run(ctx context.Context, records []model.RawRecord) (Summary, error) {
	var summary Summary
	for i := range records {
		if err := ctx.Err(); err != nil {
			return summary, eris.Wrap(err, "reconcile: run interrupted")
		}
		if err := d.processRecord(ctx, &records[i], &summary); err != nil {
			return summary, err
		}
	}
	d.log.Info("run finished",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

func (d *Driver) processRecord(ctx context.Context, raw *model.RawRecord, summary *Summary) error {
	rec, err := d.norm.Record(ctx, raw)
	if err != nil {
		d.skip(summary, raw.ID, "could not normalize record", err)
		return nil
	}

	res, err := d.matcher.ExistingRecords(ctx, rec)
	if err != nil {
		d.skip(summary, raw.ID, "could not match record", err)
		return nil
	}

	switch {
	case res.Location == nil:
		err = d.createAll(ctx, rec, summary)
	case res.Service == nil:
		err = d.createService(ctx, rec, res.Location, summary)
	default:
		err = d.update(ctx, rec, res.Location, res.Service, summary)
	}
	return err
}

// createAll creates a fresh organization, location and service for a record
// nothing in the directory matched.
func (d *Driver) createAll(ctx context.Context, rec *model.CandidateRecord, summary *Summary) error {
	org, err := d.dir.CreateOrganization(ctx, model.OrganizationInput{
		Name: rec.Location.OrganizationName,
		URL:  rec.Location.URL,
	})
	if err != nil {
		d.skip(summary, rec.SourceID, "could not create organization", err)
		return nil
	}

	loc, err := d.dir.CreateLocation(ctx, model.LocationInput{
		OrganizationID: org.ID,
		Position:       rec.Location.Position,
		Address:        rec.Location.Address,
		URL:            rec.Location.URL,
		Phones:         rec.Location.Phones,
		Note:           rec.Location.Note,
	})
	if err != nil {
		d.skip(summary, rec.SourceID, "could not create location", err)
		return nil
	}
	loc.Organization = *org

	svc, err := d.dir.CreateService(ctx, d.serviceInput(rec, loc))
	if err != nil {
		d.skip(summary, rec.SourceID, "could not create service", err)
		return nil
	}

	summary.Created++
	d.log.Info("created organization, location and service",
		zap.String("sourceId", rec.SourceID),
		zap.String("organization", org.Name),
		zap.String("locationId", loc.ID),
		zap.String("serviceId", svc.ID))
	return d.remember(ctx, rec.SourceID, loc, svc)
}

// createService adds a new service to an already-matched location, applying
// any location-level changes the merge policy allows.
func (d *Driver) createService(ctx context.Context, rec *model.CandidateRecord, loc *model.Location, summary *Summary) error {
	locUpdate, err := d.policy.DecideLocation(ctx, loc, rec)
	if err != nil {
		d.skip(summary, rec.SourceID, "could not merge location fields", err)
		return nil
	}
	if locUpdate.HasChanges() {
		if err := d.dir.UpdateLocation(ctx, loc.ID, locUpdate); err != nil {
			d.skip(summary, rec.SourceID, "could not update location", err)
			return nil
		}
	}

	svc, err := d.dir.CreateService(ctx, d.serviceInput(rec, loc))
	if err != nil {
		d.skip(summary, rec.SourceID, "could not create service", err)
		return nil
	}

	summary.Created++
	d.log.Info("created service at existing location",
		zap.String("sourceId", rec.SourceID),
		zap.String("locationId", loc.ID),
		zap.String("serviceId", svc.ID))
	return d.remember(ctx, rec.SourceID, loc, svc)
}

// update applies the merge policy to a fully matched pair.
func (d *Driver) update(ctx context.Context, rec *model.CandidateRecord, loc *model.Location, svc *model.Service, summary *Summary) error {
	locUpdate, err := d.policy.DecideLocation(ctx, loc, rec)
	if err != nil {
		d.skip(summary, rec.SourceID, "could not merge location fields", err)
		return nil
	}
	svcUpdate, err := d.policy.DecideService(ctx, svc, rec)
	if err != nil {
		d.skip(summary, rec.SourceID, "could not merge service fields", err)
		return nil
	}

	wrote := false
	if locUpdate.HasChanges() {
		if err := d.dir.UpdateLocation(ctx, loc.ID, locUpdate); err != nil {
			d.skip(summary, rec.SourceID, "could not update location", err)
			return nil
		}
		wrote = true
	}
	if svcUpdate.HasChanges() {
		if err := d.dir.UpdateService(ctx, svc.ID, svcUpdate); err != nil {
			d.skip(summary, rec.SourceID, "could not update service", err)
			return nil
		}
		wrote = true
	}

	if wrote {
		summary.Updated++
		d.log.Info("updated matched entities",
			zap.String("sourceId", rec.SourceID),
			zap.String("locationId", loc.ID),
			zap.String("serviceId", svc.ID))
	} else {
		summary.Unchanged++
	}
	return d.remember(ctx, rec.SourceID, loc, svc)
}

func (d *Driver) serviceInput(rec *model.CandidateRecord, loc *model.Location) model.ServiceInput {
	in := model.ServiceInput{
		LocationID:     loc.ID,
		OrganizationID: loc.Organization.ID,
		Name:           rec.Name,
		TaxonomyID:     rec.TaxonomyID,
		IsClosed:       rec.IsClosed,
		Hours:          rec.Hours,
		Note:           rec.Note,
	}
	if rec.IDRequired != nil && *rec.IDRequired {
		in.IDRequired = true
	}
	return in
}

func (d *Driver) remember(ctx context.Context, sourceID string, loc *model.Location, svc *model.Service) error {
	if err := d.memory.RecordMatch(ctx, sourceID, loc, svc); err != nil {
		return eris.Wrapf(err, "reconcile: persist match for %s", sourceID)
	}
	return nil
}

func (d *Driver) skip(summary *Summary, sourceID, reason string, err error) {
	summary.Skipped++
	d.log.Warn("skipping record",
		zap.String("sourceId", sourceID),
		zap.String("reason", reason),
		zap.Error(err))
}
