// Package merge decides which fields of a matched directory entity an
// incoming candidate record may change. Decisions are conservative: every
// overwrite is gated on the incoming data being strictly newer than the
// directory's own record of when the field group was last touched, and
// advisory free-text is escalated to a human instead of being clobbered.
package merge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/internal/prompt"
)

// Note resolution choices offered when an incoming note conflicts with an
// existing one.
const (
	noteReplace = iota
	noteAppend
)

// Policy produces field-level update sets from a matched pair. It never
// writes anything itself.
type Policy struct {
	ask prompt.Disambiguator
	log *zap.Logger
}

// New creates a Policy that escalates note conflicts to the given prompt.
func New(ask prompt.Disambiguator) *Policy {
	return &Policy{
		ask: ask,
		log: zap.L().With(zap.String("component", "merge")),
	}
}

// DecideService compares a candidate record against the service it matched
// and returns the update set to apply. A zero update means nothing to do.
func (p *Policy) DecideService(ctx context.Context, svc *model.Service, rec *model.CandidateRecord) (model.ServiceUpdate, error) {
	var update model.ServiceUpdate

	p.decideStatusAndHours(svc, rec, &update)
	p.decideIDRequired(svc, rec, &update)

	note, changed, err := p.decideNote(ctx, svc.Note, rec.Note,
		rec.LastUpdated, svc.Metadata.ServiceUpdatedAt(model.FieldNote),
		fmt.Sprintf("service %q", svc.Name))
	if err != nil {
		return model.ServiceUpdate{}, err
	}
	if changed {
		update.Note = &note
	}
	return update, nil
}

// DecideLocation compares a candidate record against the location it
// matched and returns the update set to apply.
func (p *Policy) DecideLocation(ctx context.Context, loc *model.Location, rec *model.CandidateRecord) (model.LocationUpdate, error) {
	var update model.LocationUpdate

	if loc.URL == "" && rec.Location.URL != "" {
		url := rec.Location.URL
		update.URL = &url
	}

	update.AddPhones = missingPhones(loc, rec.Location.Phones)

	note, changed, err := p.decideNote(ctx, loc.Note, rec.Location.Note,
		rec.LastUpdated, loc.Metadata.LocationUpdatedAt(model.FieldNote),
		fmt.Sprintf("location of %q", loc.Organization.Name))
	if err != nil {
		return model.LocationUpdate{}, err
	}
	if changed {
		update.Note = &note
	}
	return update, nil
}

// decideStatusAndHours handles the open/closed status and the schedule as
// one atomic group: a closure clears the hours, a reopening replaces them.
func (p *Policy) decideStatusAndHours(svc *model.Service, rec *model.CandidateRecord, update *model.ServiceUpdate) {
	if rec.IsClosed == nil {
		return
	}
	if !newerThan(rec.LastUpdated, svc.Metadata.ServiceUpdatedAt(model.FieldStatus, model.FieldHours)) {
		p.log.Debug("directory status is newer than incoming record, keeping it",
			zap.String("serviceId", svc.ID))
		return
	}

	// The group only moves on a status transition (or a never-recorded
	// status); an hours-only difference under an unchanged status does not
	// reopen it.
	if svc.IsClosed != nil && *svc.IsClosed == *rec.IsClosed {
		return
	}

	incomingHours := rec.Hours
	if *rec.IsClosed {
		incomingHours = nil
	}

	closed := *rec.IsClosed
	update.IsClosed = &closed
	hours := make([]model.ScheduleEntry, len(incomingHours))
	copy(hours, incomingHours)
	update.Hours = &hours
}

// decideIDRequired only ever tightens the requirement: once any source has
// reported that identification is needed, a later "no" does not relax it.
func (p *Policy) decideIDRequired(svc *model.Service, rec *model.CandidateRecord, update *model.ServiceUpdate) {
	if rec.IDRequired == nil || !*rec.IDRequired || svc.HasRequiredDocument {
		return
	}
	if !newerThan(rec.LastUpdated, svc.Metadata.ServiceUpdatedAt(model.FieldIDRequired)) {
		return
	}
	required := true
	update.IDRequired = &required
}

// decideNote resolves an incoming advisory note against the existing one.
// It returns the note to store and whether it differs from what is there.
func (p *Policy) decideNote(ctx context.Context, existing, incoming string, incomingAt, existingAt time.Time, subject string) (string, bool, error) {
	if incoming == "" {
		return "", false, nil
	}
	if existing == "" {
		return incoming, true, nil
	}
	if strings.Contains(existing, incoming) {
		return "", false, nil
	}
	if !newerThan(incomingAt, existingAt) {
		p.log.Debug("existing note is newer than incoming record, keeping it",
			zap.String("subject", subject))
		return "", false, nil
	}

	question := fmt.Sprintf("The %s already has a note:\n  %q\nThe incoming record says:\n  %q\nWhat should be kept? (0 keeps the existing note)", subject, existing, incoming)
	choice, err := p.ask.Choose(ctx, question, []string{
		"Replace with the incoming note",
		"Keep both, incoming appended",
	})
	if err != nil {
		return "", false, eris.Wrap(err, "merge: resolve note conflict")
	}
	switch choice {
	case noteReplace:
		return incoming, true, nil
	case noteAppend:
		return existing + " " + incoming, true, nil
	default:
		return "", false, nil
	}
}

// missingPhones returns the incoming phones whose digit sequences appear
// nowhere on the location or any of its services.
func missingPhones(loc *model.Location, incoming []model.Phone) []model.Phone {
	known := make(map[string]bool)
	for _, p := range loc.Phones {
		known[p.Digits()] = true
	}
	for _, svc := range loc.Services {
		for _, p := range svc.Phones {
			known[p.Digits()] = true
		}
	}

	var missing []model.Phone
	for _, p := range incoming {
		digits := p.Digits()
		if digits == "" || known[digits] {
			continue
		}
		known[digits] = true
		missing = append(missing, p)
	}
	return missing
}

// newerThan implements the recency gate: incoming data wins only when the
// directory has no recorded update for the field group, or the incoming
// timestamp is strictly later than it.
func newerThan(incoming, existing time.Time) bool {
	return existing.IsZero() || incoming.After(existing)
}
