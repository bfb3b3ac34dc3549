package normalize

import (
	"regexp"

	"github.com/streetlives/util-scripts/internal/model"
)

// phoneRe matches a North-American phone number with an optional trailing
// extension introduced by "ext", "x", or loose punctuation.
var phoneRe = regexp.MustCompile(`(?i)(\(?\d{3}\)?[ .-]*\d{3}[ .-]*\d{4})[.EXT x(-]*(\d{3,4})?`)

// ParsePhones scans free text for phone numbers and returns every
// non-overlapping match with its optional extension digits. No matches is
// a valid empty result, not an error.
func ParsePhones(text string) []model.Phone {
	if text == "" {
		return nil
	}

	var phones []model.Phone
	for _, m := range phoneRe.FindAllStringSubmatch(text, -1) {
		phones = append(phones, model.Phone{
			Number:    m[1],
			Extension: m[2],
		})
	}
	return phones
}
