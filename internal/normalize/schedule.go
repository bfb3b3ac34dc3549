package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/streetlives/util-scripts/internal/model"
)

// ErrUnparsableHours is returned when an hours string fails to anchor at
// all: no segment matched from the start of the string.
var ErrUnparsableHours = eris.New("normalize: unsupported hours format")

// segmentRe matches one "<days>: <start>-<end>" schedule segment. The day
// token is a list of three-to-five-letter weekday abbreviations joined by
// hyphens (ranges) or commas (lists). The end time must carry AM/PM; the
// start time may omit it.
var segmentRe = regexp.MustCompile(`(?i)([a-z]{3,5}(?:[-,][a-z]{3,5})*):? *(\d{1,2}(?::\d{2})?(?:am|pm)?)-(\d{1,2}(?::\d{2})?(?:am|pm))[, ]*`)

// weekdayPrefixes index the week Monday-first; day tokens are matched on
// their first two letters.
var weekdayPrefixes = []string{"mo", "tu", "we", "th", "fr", "sa", "su"}

type rawEntry struct {
	day   model.Weekday
	start string
	end   string
}

// ParseHours parses a free-text hours string into schedule entries with
// 24-hour HH:MM times. Segments whose day or time token cannot be parsed
// are skipped with a logged diagnostic; a weekday appearing in two
// segments with different hours is dropped entirely. ErrUnparsableHours is
// returned only when nothing in the string matches from position zero.
func ParseHours(hours string) ([]model.ScheduleEntry, error) {
	matches := segmentRe.FindAllStringSubmatchIndex(hours, -1)
	if len(matches) == 0 || matches[0][0] != 0 {
		return nil, eris.Wrapf(ErrUnparsableHours, "%q", hours)
	}

	var entries []rawEntry
	for _, m := range matches {
		dayToken := hours[m[2]:m[3]]
		start := strings.ToLower(hours[m[4]:m[5]])
		end := strings.ToLower(hours[m[6]:m[7]])

		days, err := daysInRange(dayToken)
		if err != nil {
			zap.L().Warn("skipping hours segment",
				zap.String("hours", hours),
				zap.Error(err),
			)
			continue
		}

		opens, closes, err := normalizeTimes(start, end)
		if err != nil {
			zap.L().Warn("skipping hours segment",
				zap.String("hours", hours),
				zap.Error(err),
			)
			continue
		}

		for _, day := range days {
			entries = append(entries, rawEntry{day: day, start: opens, end: closes})
		}
	}

	return filterDuplicateDays(hours, entries), nil
}

// daysInRange expands a day token into individual weekdays. Comma-joined
// parts are independent; hyphen-joined parts are a range walked forward
// circularly, so wrap-around ranges like "Fri-Mon" are valid.
func daysInRange(token string) ([]model.Weekday, error) {
	var days []model.Weekday
	for _, part := range strings.Split(strings.ToLower(token), ",") {
		part = strings.TrimSpace(part)

		if !strings.Contains(part, "-") {
			day, ok := weekdayFor(part)
			if !ok {
				return nil, eris.Errorf("normalize: invalid day %q", part)
			}
			days = append(days, day)
			continue
		}

		bounds := strings.SplitN(part, "-", 2)
		start, okStart := weekdayFor(strings.TrimSpace(bounds[0]))
		end, okEnd := weekdayFor(strings.TrimSpace(bounds[1]))
		if !okStart || !okEnd {
			return nil, eris.Errorf("normalize: invalid days %q", part)
		}

		for i := start; i != end; i = i%7 + 1 {
			days = append(days, i)
		}
		days = append(days, end)
	}
	return days, nil
}

func weekdayFor(token string) (model.Weekday, bool) {
	for i, prefix := range weekdayPrefixes {
		if strings.HasPrefix(token, prefix) {
			return model.Weekday(i + 1), true
		}
	}
	return 0, false
}

// ensureMinutes appends ":00" to a bare hour, leaving any trailing
// meridiem in place.
var bareHourRe = regexp.MustCompile(`^(\d+)([^:\d]|$)`)

func ensureMinutes(t string) string {
	return bareHourRe.ReplaceAllString(t, "$1:00$2")
}

// ensureMeridiem fills in a missing AM/PM on the start time, inferring it
// from the end time's meridiem and flipping it when the start hour would
// otherwise exceed the end hour ("9-5pm" means 9am, not 9pm).
func ensureMeridiem(start, end string) (string, string) {
	if strings.HasSuffix(start, "am") || strings.HasSuffix(start, "pm") {
		return start, end
	}

	startHour, _ := strconv.Atoi(strings.SplitN(start, ":", 2)[0])
	endHour, _ := strconv.Atoi(strings.SplitN(end, ":", 2)[0])
	endSign := end[len(end)-2:]

	if startHour%12 <= endHour%12 {
		return start + endSign, end
	}
	if endSign == "am" {
		return start + "pm", end
	}
	return start + "am", end
}

// to24Hour converts "h:mm" plus the am/pm suffix into 24-hour "HH:MM".
var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(am|pm)$`)

func to24Hour(t string) (string, error) {
	m := clockRe.FindStringSubmatch(t)
	if m == nil {
		return "", eris.Errorf("normalize: invalid time %q", t)
	}

	hour, _ := strconv.Atoi(m[1])
	if hour < 1 || hour > 12 {
		return "", eris.Errorf("normalize: invalid hour in %q", t)
	}
	hour %= 12
	if m[3] == "pm" {
		hour += 12
	}
	return fmt.Sprintf("%02d:%s", hour, m[2]), nil
}

func normalizeTimes(start, end string) (string, string, error) {
	start, end = ensureMeridiem(ensureMinutes(start), ensureMinutes(end))

	opens, err := to24Hour(start)
	if err != nil {
		return "", "", err
	}
	closes, err := to24Hour(end)
	if err != nil {
		return "", "", err
	}
	return opens, closes, nil
}

// filterDuplicateDays deduplicates entries per weekday. A weekday whose
// segments disagree on hours has no safe answer and is dropped with a
// diagnostic; agreeing duplicates collapse to one entry.
func filterDuplicateDays(hours string, entries []rawEntry) []model.ScheduleEntry {
	byDay := make(map[model.Weekday][]rawEntry)
	var order []model.Weekday
	for _, e := range entries {
		if _, seen := byDay[e.day]; !seen {
			order = append(order, e.day)
		}
		byDay[e.day] = append(byDay[e.day], e)
	}

	var out []model.ScheduleEntry
	for _, day := range order {
		group := byDay[day]
		conflicting := false
		for _, e := range group[1:] {
			if e.start != group[0].start || e.end != group[0].end {
				conflicting = true
				break
			}
		}
		if conflicting {
			zap.L().Warn("dropping weekday with conflicting hours",
				zap.Stringer("weekday", day),
				zap.String("hours", hours),
			)
			continue
		}
		out = append(out, model.ScheduleEntry{
			Weekday:  day,
			OpensAt:  group[0].start,
			ClosesAt: group[0].end,
		})
	}
	return out
}
