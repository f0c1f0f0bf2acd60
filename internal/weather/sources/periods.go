package sources

import (
	"time"

	"github.com/i474232898/wxarchive/internal/weather"
)

// dailyPeriods splits (from, to] into local calendar days. A zero to means
// now; a zero from starts at the day containing to.
func dailyPeriods(from, to, now time.Time, loc *time.Location) []weather.Period {
	return chunkPeriods(from, to, now, loc, 1)
}

// chunkPeriods splits (from, to] into runs of at most days local calendar
// days. The last run stops at the end of the day containing to.
func chunkPeriods(from, to, now time.Time, loc *time.Location, days int) []weather.Period {
	if days < 1 {
		days = 1
	}
	end := to
	if end.IsZero() {
		end = now
	}
	start := from
	if start.IsZero() {
		start = end
	}
	if start.After(end) {
		return nil
	}

	last := midnight(end, loc).AddDate(0, 0, 1)
	var out []weather.Period
	for d := midnight(start, loc); !d.After(end); {
		next := d.AddDate(0, 0, days)
		if next.After(last) {
			next = last
		}
		label := d.Format("2006-01-02")
		if lastDay := next.AddDate(0, 0, -1); lastDay.After(d) {
			label += "/" + lastDay.Format("2006-01-02")
		}
		out = append(out, weather.Period{Label: label, Start: d, End: next})
		d = next
	}
	return out
}

// monthlyPeriods splits (from, to] into local calendar months.
func monthlyPeriods(from, to, now time.Time, loc *time.Location) []weather.Period {
	end := to
	if end.IsZero() {
		end = now
	}
	start := from
	if start.IsZero() {
		start = end
	}
	if start.After(end) {
		return nil
	}

	s := start.In(loc)
	var out []weather.Period
	for d := time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, loc); !d.After(end); {
		next := d.AddDate(0, 1, 0)
		out = append(out, weather.Period{Label: d.Format("2006-01"), Start: d, End: next})
		d = next
	}
	return out
}

func midnight(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}
