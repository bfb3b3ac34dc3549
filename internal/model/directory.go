package model

import "time"

// FieldMeta records the most recent write to one field within a metadata
// group, with the provenance of that write.
type FieldMeta struct {
	FieldName string    `json:"field_name"`
	UpdatedAt time.Time `json:"last_action_date"`
	Source    string    `json:"source,omitempty"`
}

// Metadata carries per-field-group update history for a directory entity.
// Recency comparisons during merging are based on these timestamps.
type Metadata struct {
	Location []FieldMeta `json:"location,omitempty"`
	Service  []FieldMeta `json:"service,omitempty"`
}

// lastUpdated returns the newest recorded update among the named fields,
// or the zero time if none of them has ever been written.
func lastUpdated(metas []FieldMeta, fields ...string) time.Time {
	var latest time.Time
	for _, m := range metas {
		for _, f := range fields {
			if m.FieldName == f && m.UpdatedAt.After(latest) {
				latest = m.UpdatedAt
			}
		}
	}
	return latest
}

// LocationUpdatedAt returns when any of the named location-group fields was
// last written, zero time if never.
func (m Metadata) LocationUpdatedAt(fields ...string) time.Time {
	return lastUpdated(m.Location, fields...)
}

// ServiceUpdatedAt returns when any of the named service-group fields was
// last written, zero time if never.
func (m Metadata) ServiceUpdatedAt(fields ...string) time.Time {
	return lastUpdated(m.Service, fields...)
}

// Organization is a directory organization.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Location is a directory location together with the associations the
// matcher and merge policy need.
type Location struct {
	ID           string       `json:"id"`
	Name         string       `json:"name,omitempty"`
	Organization Organization `json:"Organization"`
	Position     *Position    `json:"position,omitempty"`
	Address      Address      `json:"address"`
	URL          string       `json:"url,omitempty"`
	Phones       []Phone      `json:"Phones,omitempty"`
	Services     []Service    `json:"Services,omitempty"`
	Note         string       `json:"covid_related_info,omitempty"`
	Metadata     Metadata     `json:"metadata,omitempty"`
}

// Service is a directory service attached to a location.
type Service struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	TaxonomyID          string          `json:"taxonomy_id,omitempty"`
	IsClosed            *bool           `json:"is_closed,omitempty"`
	Hours               []ScheduleEntry `json:"RegularSchedules,omitempty"`
	Note                string          `json:"covid_related_info,omitempty"`
	HasRequiredDocument bool            `json:"has_required_document,omitempty"`
	URL                 string          `json:"url,omitempty"`
	Phones              []Phone         `json:"Phones,omitempty"`
	Metadata            Metadata        `json:"metadata,omitempty"`
}

// TaxonomyNode is one node of the directory's hierarchical taxonomy tree.
type TaxonomyNode struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Children []TaxonomyNode `json:"children,omitempty"`
}

// MatchEntry is the durable match-memory record for one source id. It maps
// the external id to previously resolved directory entities and remembers
// nearby organizations a human has confirmed to be distinct, so the same
// disambiguation question is never asked twice.
type MatchEntry struct {
	LocationID             string   `json:"location_id,omitempty"`
	ServiceID              string   `json:"service_id,omitempty"`
	OrgName                string   `json:"org_name,omitempty"`
	ServiceName            string   `json:"service_name,omitempty"`
	NearbyButDifferentOrgs []string `json:"nearby_but_different_orgs,omitempty"`
}

// OrganizationInput is the payload for creating an organization.
type OrganizationInput struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// LocationInput is the payload for creating a location.
type LocationInput struct {
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name,omitempty"`
	Position       *Position `json:"position,omitempty"`
	Address        Address   `json:"address"`
	URL            string    `json:"url,omitempty"`
	Phones         []Phone   `json:"phones,omitempty"`
	Note           string    `json:"covid_related_info,omitempty"`
}

// ServiceInput is the payload for creating a service.
type ServiceInput struct {
	LocationID     string          `json:"location_id"`
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	TaxonomyID     string          `json:"taxonomy_id"`
	IsClosed       *bool           `json:"is_closed,omitempty"`
	Hours          []ScheduleEntry `json:"hours,omitempty"`
	Note           string          `json:"covid_related_info,omitempty"`
	IDRequired     bool            `json:"id_required,omitempty"`
}

// LocationUpdate is a field-level update set for a location. Nil pointer
// fields mean no change; a set pointer overwrites that field. An empty
// update set is a documented no-op, never a write.
type LocationUpdate struct {
	URL       *string `json:"url,omitempty"`
	Note      *string `json:"covid_related_info,omitempty"`
	AddPhones []Phone `json:"add_phones,omitempty"`
}

// HasChanges reports whether applying this update would write anything.
func (u LocationUpdate) HasChanges() bool {
	return u.URL != nil || u.Note != nil || len(u.AddPhones) > 0
}

// ServiceUpdate is a field-level update set for a service. Status and hours
// travel together: when IsClosed is set, Hours is the full replacement hour
// list (empty when the service is reported closed).
type ServiceUpdate struct {
	IsClosed   *bool            `json:"is_closed,omitempty"`
	Hours      *[]ScheduleEntry `json:"hours,omitempty"`
	Note       *string          `json:"covid_related_info,omitempty"`
	IDRequired *bool            `json:"id_required,omitempty"`
}

// HasChanges reports whether applying this update would write anything.
func (u ServiceUpdate) HasChanges() bool {
	return u.IsClosed != nil || u.Hours != nil || u.Note != nil || u.IDRequired != nil
}
