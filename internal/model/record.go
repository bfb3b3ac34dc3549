// Package model defines the shared data types for the ingestion
// reconciliation pipeline: raw source rows, normalized candidate records,
// and the target directory entities they are matched against.
package model

import (
	"strings"
	"time"
)

// Weekday numbers schedule entries 1 (Monday) through 7 (Sunday), matching
// the directory's regular_schedules convention.
type Weekday int

// Weekday values.
const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

func (w Weekday) String() string {
	if name, ok := weekdayNames[w]; ok {
		return name
	}
	return "Unknown"
}

// ScheduleEntry is one weekday's opening hours in 24-hour HH:MM form.
type ScheduleEntry struct {
	Weekday  Weekday `json:"weekday"`
	OpensAt  string  `json:"opens_at"`
	ClosesAt string  `json:"closes_at"`
}

// Phone is a North-American phone number with an optional extension.
type Phone struct {
	Number    string `json:"number"`
	Extension string `json:"extension,omitempty"`
}

// Digits returns the number reduced to its digits only, for
// formatting-insensitive comparison.
func (p Phone) Digits() string {
	var b strings.Builder
	for _, r := range p.Number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Position is a WGS84 coordinate pair.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Address is a structured postal address.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OneLine renders the address as a single geocodable string.
func (a Address) OneLine() string {
	line := a.Street + ", " + a.City + ", " + a.State + " " + a.PostalCode
	if a.Country != "" {
		line += ", " + a.Country
	}
	return line
}

// RawRecord is one unprocessed row from a source export, fields still
// free-text exactly as the partner entered them.
type RawRecord struct {
	ID              string
	Name            string
	Phone           string
	Address         string
	Zipcode         string
	Neighborhood    string
	Hours           string
	LastUpdated     time.Time
	Status          string
	FacilityType    string
	AdditionalNotes string
	IDRequired      string
	Website         string
	Longitude       float64
	Latitude        float64
	HasCoordinates  bool
	DoNotImport     bool
}

// CandidateLocation is the location-level slice of a candidate record.
type CandidateLocation struct {
	OrganizationName string
	URL              string
	Phones           []Phone
	Position         *Position
	Address          Address
	Note             string
}

// CandidateRecord is the normalized output of one source row, not yet
// matched against the directory. Regenerated fresh on every run; never
// persisted.
type CandidateRecord struct {
	SourceID     string
	LastUpdated  time.Time
	Name         string
	TaxonomyID   string
	TaxonomyName string
	IsClosed     *bool
	Hours        []ScheduleEntry
	Note         string
	IDRequired   *bool
	Location     CandidateLocation
}
