package normalize

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetlives/util-scripts/internal/model"
)

func TestDaysInRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  []model.Weekday
	}{
		{"mon-fri", []model.Weekday{model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday}},
		{"fri-mon", []model.Weekday{model.Friday, model.Saturday, model.Sunday, model.Monday}},
		{"mon,wed", []model.Weekday{model.Monday, model.Wednesday}},
		{"sat,sun", []model.Weekday{model.Saturday, model.Sunday}},
		{"tues", []model.Weekday{model.Tuesday}},
		{"thu-thu", []model.Weekday{model.Thursday}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := daysInRange(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unrecognized token errors", func(t *testing.T) {
		_, err := daysInRange("funday")
		assert.Error(t, err)
	})
}

func TestTimeNormalization(t *testing.T) {
	t.Parallel()

	t.Run("bare hours get minutes", func(t *testing.T) {
		assert.Equal(t, "9:00", ensureMinutes("9"))
		assert.Equal(t, "9:00pm", ensureMinutes("9pm"))
		assert.Equal(t, "9:30", ensureMinutes("9:30"))
	})

	t.Run("meridiem inferred from end", func(t *testing.T) {
		start, end := ensureMeridiem("9:00", "5:00pm")
		assert.Equal(t, "9:00am", start, "start past end hour flips AM")
		assert.Equal(t, "5:00pm", end)

		start, _ = ensureMeridiem("9:30", "11:00pm")
		assert.Equal(t, "9:30pm", start, "start before end hour keeps end's sign")

		start, _ = ensureMeridiem("10:00am", "5:00pm")
		assert.Equal(t, "10:00am", start, "explicit meridiem untouched")
	})

	t.Run("24-hour conversion", func(t *testing.T) {
		for in, want := range map[string]string{
			"9:00am":  "09:00",
			"5:00pm":  "17:00",
			"9:30pm":  "21:30",
			"11:00pm": "23:00",
			"12:00am": "00:00",
			"12:00pm": "12:00",
		} {
			got, err := to24Hour(in)
			require.NoError(t, err)
			assert.Equal(t, want, got, "input %s", in)
		}
	})
}

func TestParseHours(t *testing.T) {
	t.Parallel()

	t.Run("single range segment", func(t *testing.T) {
		entries, err := ParseHours("Mon-Fri: 9-5PM")
		require.NoError(t, err)
		require.Len(t, entries, 5)
		assert.Equal(t, model.Monday, entries[0].Weekday)
		assert.Equal(t, "09:00", entries[0].OpensAt)
		assert.Equal(t, "17:00", entries[0].ClosesAt)
		assert.Equal(t, model.Friday, entries[4].Weekday)
	})

	t.Run("wrap-around range", func(t *testing.T) {
		entries, err := ParseHours("Fri-Mon: 10AM-2PM")
		require.NoError(t, err)
		days := make([]model.Weekday, 0, len(entries))
		for _, e := range entries {
			days = append(days, e.Weekday)
		}
		assert.Equal(t, []model.Weekday{model.Friday, model.Saturday, model.Sunday, model.Monday}, days)
	})

	t.Run("multiple segments", func(t *testing.T) {
		entries, err := ParseHours("Mon-Wed: 9-5PM, Sat: 10AM-1PM")
		require.NoError(t, err)
		require.Len(t, entries, 4)
		assert.Equal(t, model.Saturday, entries[3].Weekday)
		assert.Equal(t, "10:00", entries[3].OpensAt)
		assert.Equal(t, "13:00", entries[3].ClosesAt)
	})

	t.Run("bad segment skipped, rest kept", func(t *testing.T) {
		entries, err := ParseHours("Mon: 9-5PM, Funday: 10AM-2PM")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, model.Monday, entries[0].Weekday)
	})

	t.Run("conflicting duplicate day dropped", func(t *testing.T) {
		entries, err := ParseHours("Mon: 9-5PM, Mon: 10AM-2PM, Tue: 9-5PM")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, model.Tuesday, entries[0].Weekday)
	})

	t.Run("agreeing duplicate day collapses", func(t *testing.T) {
		entries, err := ParseHours("Mon: 9-5PM, Mon: 9AM-5PM")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, model.Monday, entries[0].Weekday)
	})

	t.Run("unanchored string fails whole parse", func(t *testing.T) {
		_, err := ParseHours("call for hours")
		assert.True(t, eris.Is(err, ErrUnparsableHours))

		_, err = ParseHours("open Mon: 9-5PM")
		assert.True(t, eris.Is(err, ErrUnparsableHours), "first match must start at position 0")
	})

	t.Run("meridiem inference backward from end", func(t *testing.T) {
		entries, err := ParseHours("Tue: 9:30-11PM")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "21:30", entries[0].OpensAt)
		assert.Equal(t, "23:00", entries[0].ClosesAt)
	})
}
