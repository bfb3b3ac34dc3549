// Package normalize turns the free-text fields of raw source rows into
// canonical scalar and structured values. All parsers here are pure: bad
// input degrades to an empty result or a typed error, never a panic, so
// the reconciliation driver's per-record error boundary stays simple.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanString trims surrounding whitespace. An empty result means the
// field is absent.
func CleanString(s string) string {
	return strings.TrimSpace(s)
}

// CleanSentence trims whitespace and drops a single trailing period, the
// way free-text note cells usually end.
func CleanSentence(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, ".")
}

// ParseIsClosed maps a status label onto the closed/open tri-state. Any
// label outside the known vocabulary yields nil (unknown), which callers
// must never conflate with an explicit "open".
func ParseIsClosed(status string) *bool {
	switch strings.ToLower(CleanString(status)) {
	case "closed":
		return boolPtr(true)
	case "open":
		return boolPtr(false)
	default:
		return nil
	}
}

// ParseIDRequired maps a yes/no label onto a tri-state bool, nil when the
// label is unrecognized.
func ParseIDRequired(idRequired string) *bool {
	switch strings.ToLower(CleanString(idRequired)) {
	case "yes":
		return boolPtr(true)
	case "no":
		return boolPtr(false)
	default:
		return nil
	}
}

func boolPtr(b bool) *bool { return &b }

// citySuffixRe matches a trailing ", <city>, <ST> <zip>" tail on an
// address line. The city part is optional, the two-letter state and the
// 5-digit ZIP are not.
var citySuffixRe = regexp.MustCompile(`(?i)[,\s]+(?:[a-z .'-]+,)?\s*[a-z]{2}\.?,?\s+\d{5}(?:-\d{4})?\s*$`)

// StripCitySuffix removes an optional trailing city/state/ZIP suffix from
// an address line, returning the street stem. Re-applying to an already
// stripped address is a no-op.
func StripCitySuffix(address string) string {
	return CleanString(citySuffixRe.ReplaceAllString(address, ""))
}

// SplitIntoArray splits a multi-valued source cell into its values. A
// value wrapped in double quotes is a single element regardless of commas;
// an empty value is no elements.
func SplitIntoArray(value string) []string {
	if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) && len(value) >= 2 {
		return []string{value[1 : len(value)-1]}
	}
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName canonicalizes an organization or service name for comparison:
// trimmed, lowercased, diacritics removed. Names that fold equal are
// treated as the same name by the matcher.
func FoldName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
