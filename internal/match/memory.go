// Package match finds the directory entities an incoming candidate record
// already represents, using a durable match-memory plus live proximity and
// name queries, escalating to human disambiguation only when necessary.
package match

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/streetlives/util-scripts/internal/cache"
	"github.com/streetlives/util-scripts/internal/model"
)

// Memory is the durable mapping from source id to previously resolved
// directory ids and disambiguation history. It is loaded once per run and
// flushed after every mutation, so an interrupted run loses at most the
// in-flight record.
type Memory struct {
	store   *cache.Store
	entries map[string]model.MatchEntry
}

// LoadMemory loads all match entries. Failure here aborts the run:
// proceeding without matching state would silently re-create entities.
func LoadMemory(ctx context.Context, store *cache.Store) (*Memory, error) {
	raw, err := store.List(ctx, cache.NSMatches)
	if err != nil {
		return nil, eris.Wrap(err, "match: load memory")
	}

	entries := make(map[string]model.MatchEntry, len(raw))
	for sourceID, data := range raw {
		var entry model.MatchEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, eris.Wrapf(err, "match: decode memory entry %s", sourceID)
		}
		entries[sourceID] = entry
	}
	return &Memory{store: store, entries: entries}, nil
}

// Get returns the entry for a source id, zero-valued when unseen.
func (m *Memory) Get(sourceID string) model.MatchEntry {
	return m.entries[sourceID]
}

// Has reports whether a source id has ever been remembered.
func (m *Memory) Has(sourceID string) bool {
	_, ok := m.entries[sourceID]
	return ok
}

// Len returns the number of remembered source ids.
func (m *Memory) Len() int {
	return len(m.entries)
}

// All returns every remembered entry keyed by source id.
func (m *Memory) All() map[string]model.MatchEntry {
	out := make(map[string]model.MatchEntry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// RecordMatch stores the resolved location and service for a source id
// and persists the entry.
func (m *Memory) RecordMatch(ctx context.Context, sourceID string, loc *model.Location, svc *model.Service) error {
	entry := m.entries[sourceID]
	if loc != nil {
		entry.LocationID = loc.ID
		entry.OrgName = loc.Organization.Name
	}
	if svc != nil {
		entry.ServiceID = svc.ID
		entry.ServiceName = svc.Name
	}
	return m.put(ctx, sourceID, entry)
}

// RecordNearbyButDifferent appends organizations a human confirmed to be
// distinct from this source id's organization, and persists the entry.
func (m *Memory) RecordNearbyButDifferent(ctx context.Context, sourceID string, orgNames []string) error {
	entry := m.entries[sourceID]
	entry.NearbyButDifferentOrgs = appendMissing(entry.NearbyButDifferentOrgs, orgNames)
	return m.put(ctx, sourceID, entry)
}

func (m *Memory) put(ctx context.Context, sourceID string, entry model.MatchEntry) error {
	if err := m.store.Put(ctx, cache.NSMatches, sourceID, entry); err != nil {
		return eris.Wrapf(err, "match: persist memory entry %s", sourceID)
	}
	m.entries[sourceID] = entry
	return nil
}

func appendMissing(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, name := range existing {
		seen[name] = true
	}
	for _, name := range incoming {
		if !seen[name] {
			existing = append(existing, name)
			seen[name] = true
		}
	}
	return existing
}
