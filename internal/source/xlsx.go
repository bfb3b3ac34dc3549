// Package source reads partner spreadsheet exports into raw records and
// applies the pre-filter that keeps obviously unusable rows out of the
// pipeline.
package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/streetlives/util-scripts/internal/model"
)

// Export column headers. Matching is case-insensitive and
// whitespace-trimmed, since partners hand-edit these sheets.
const (
	colID           = "id"
	colName         = "name"
	colPhone        = "phone"
	colAddress      = "address"
	colZipcode      = "zipcode"
	colNeighborhood = "neighborhood"
	colHours        = "hours"
	colLastUpdated  = "last updated"
	colStatus       = "status"
	colFacilityType = "facility type"
	colNotes        = "additional notes"
	colIDRequired   = "id required"
	colWebsite      = "website"
	colLatitude     = "lat"
	colLongitude    = "lng"
	colDoNotImport  = "don't import"
)

// Timestamp layouts seen in the wild across partner exports.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006",
}

// Options configures the reader.
type Options struct {
	// SheetName selects a sheet by name; empty means the first sheet.
	SheetName string
}

// ReadFile reads every data row of an XLSX export into raw records. The
// first row must be the header row.
func ReadFile(path string, opts Options) ([]model.RawRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "source: open export")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("source: sheet %q is empty", sheet.Name)
	}

	columns := headerIndex(sheet.Rows[0])
	if _, ok := columns[colID]; !ok {
		return nil, eris.Errorf("source: sheet %q has no %q column", sheet.Name, colID)
	}

	records := make([]model.RawRecord, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		rec := rowToRecord(row, columns)
		if rec.ID == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func getSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("source: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("source: export has no sheets")
	}
	return f.Sheets[0], nil
}

func headerIndex(row *xlsx.Row) map[string]int {
	columns := make(map[string]int, len(row.Cells))
	for i, cell := range row.Cells {
		name := strings.ToLower(strings.TrimSpace(cell.String()))
		if name != "" {
			columns[name] = i
		}
	}
	return columns
}

func rowToRecord(row *xlsx.Row, columns map[string]int) model.RawRecord {
	get := func(col string) string {
		idx, ok := columns[col]
		if !ok || idx >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[idx].String())
	}

	rec := model.RawRecord{
		ID:              get(colID),
		Name:            get(colName),
		Phone:           get(colPhone),
		Address:         get(colAddress),
		Zipcode:         get(colZipcode),
		Neighborhood:    get(colNeighborhood),
		Hours:           get(colHours),
		Status:          get(colStatus),
		FacilityType:    get(colFacilityType),
		AdditionalNotes: get(colNotes),
		IDRequired:      get(colIDRequired),
		Website:         get(colWebsite),
		DoNotImport:     isTruthy(get(colDoNotImport)),
	}
	rec.LastUpdated = parseTimestamp(get(colLastUpdated))

	lat, latErr := strconv.ParseFloat(get(colLatitude), 64)
	lng, lngErr := strconv.ParseFloat(get(colLongitude), 64)
	if latErr == nil && lngErr == nil {
		rec.Latitude = lat
		rec.Longitude = lng
		rec.HasCoordinates = true
	}
	return rec
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func isTruthy(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "checked", "x":
		return true
	}
	return false
}

// Filter drops rows that cannot be reconciled: stale or undated rows, rows
// with no usable status, open rows with no hours, rows missing coordinates
// or an address, and rows flagged do-not-import. Each dropped row is logged
// with its reason.
func Filter(records []model.RawRecord, now time.Time, maxAge time.Duration) []model.RawRecord {
	log := zap.L().With(zap.String("component", "source"))

	kept := make([]model.RawRecord, 0, len(records))
	for _, rec := range records {
		if reason := rejectReason(&rec, now, maxAge); reason != "" {
			log.Debug("dropping row",
				zap.String("recordId", rec.ID),
				zap.String("reason", reason))
			continue
		}
		kept = append(kept, rec)
	}
	log.Info("filtered source rows",
		zap.Int("total", len(records)),
		zap.Int("kept", len(kept)))
	return kept
}

func rejectReason(rec *model.RawRecord, now time.Time, maxAge time.Duration) string {
	switch {
	case rec.DoNotImport:
		return "flagged do-not-import"
	case rec.LastUpdated.IsZero() || now.Sub(rec.LastUpdated) > maxAge:
		return "last update too old"
	case rec.Status == "" || strings.EqualFold(rec.Status, "unknown"):
		return "no usable status"
	case !strings.EqualFold(rec.Status, "closed") && strings.TrimSpace(rec.Hours) == "":
		return "open with no hours"
	case !rec.HasCoordinates:
		return "no coordinates"
	case strings.TrimSpace(rec.Address) == "":
		return "no address"
	}
	return ""
}
