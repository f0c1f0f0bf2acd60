package importer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/i474232898/wxarchive/internal/weather"
)

var (
	errNonIncreasing = errors.New("timestamps do not increase; cannot derive interval")
	errSingleRecord  = errors.New("a single record has no neighbour to derive an interval from")
	errIntervalZero  = errors.New("derived interval rounds to zero minutes")
)

// sortAndDedupe orders records by time and drops later records sharing a
// timestamp with an earlier one. It returns the kept records and the number
// dropped.
func sortAndDedupe(records []weather.Record) ([]weather.Record, int) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DateTime.Before(records[j].DateTime)
	})
	out := records[:0]
	dropped := 0
	for i, r := range records {
		if i > 0 && r.DateTime.Equal(out[len(out)-1].DateTime) {
			dropped++
			continue
		}
		out = append(out, r)
	}
	return out, dropped
}

// cumulativeTracker turns running totals into per-record deltas. It keeps the
// last total of each field across periods of one run.
type cumulativeTracker struct {
	last map[string]float64
}

func newCumulativeTracker() *cumulativeTracker {
	return &cumulativeTracker{last: make(map[string]float64)}
}

// apply replaces each cumulative field of records with its delta. A total
// lower than the previous one is a counter reset and counts in full.
func (c *cumulativeTracker) apply(records []weather.Record, fields []string) {
	for _, r := range records {
		for _, f := range fields {
			cur, ok := r.Get(f)
			prev, hadPrev := c.last[f]
			if !ok {
				// A gap breaks the chain.
				delete(c.last, f)
				continue
			}
			c.last[f] = cur
			switch {
			case !hadPrev:
				r.Clear(f)
			case cur >= prev:
				r.Set(f, cur-prev)
			default:
				r.Set(f, cur)
			}
		}
	}
}

// intervalAssigner sets record intervals.
type intervalAssigner struct {
	mode    string
	fixed   int
	lastTS  time.Time
	hasLast bool
}

func newIntervalAssigner(opts Options) *intervalAssigner {
	a := &intervalAssigner{mode: opts.Interval}
	switch opts.Interval {
	case IntervalConf:
		a.fixed = opts.ArchiveInterval
	case IntervalDerive:
	default:
		a.fixed, _ = strconv.Atoi(opts.Interval)
	}
	return a
}

func (a *intervalAssigner) apply(records []weather.Record, period string) error {
	if a.mode != IntervalDerive {
		for i := range records {
			records[i].Interval = a.fixed
		}
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	for i := range records {
		var gap time.Duration
		switch {
		case i > 0:
			gap = records[i].DateTime.Sub(records[i-1].DateTime)
		case a.hasLast:
			gap = records[i].DateTime.Sub(a.lastTS)
		case len(records) > 1:
			gap = records[1].DateTime.Sub(records[0].DateTime)
		default:
			return &DecodeError{Period: period, Line: 1, Err: errSingleRecord}
		}
		if gap <= 0 {
			return &DecodeError{Period: period, Line: i + 1, Err: errNonIncreasing}
		}
		minutes := int(math.Round(gap.Minutes()))
		if minutes <= 0 {
			return &DecodeError{Period: period, Line: i + 1, Err: fmt.Errorf("%w (gap %s)", errIntervalZero, gap)}
		}
		records[i].Interval = minutes
	}
	a.lastTS = records[len(records)-1].DateTime
	a.hasLast = true
	return nil
}

// inRange reports whether ts falls in (from, to].
func inRange(ts, from, to time.Time) bool {
	if !from.IsZero() && !ts.After(from) {
		return false
	}
	if !to.IsZero() && ts.After(to) {
		return false
	}
	return true
}

var windPairs = []struct{ speed, dir string }{
	{"windSpeed", "windDir"},
	{"windGust", "windGustDir"},
}

// normalizeWind drops directions outside the accepted range, folds the rest
// into [0, 360) and drops directions reported with zero speed. It returns the
// number of out-of-range directions.
func normalizeWind(r weather.Record, accepted [2]float64) int {
	rejected := 0
	for _, p := range windPairs {
		dir, ok := r.Get(p.dir)
		if !ok {
			continue
		}
		if dir < accepted[0] || dir > accepted[1] {
			r.Clear(p.dir)
			rejected++
			continue
		}
		dir = math.Mod(dir, 360)
		if dir < 0 {
			dir += 360
		}
		r.Set(p.dir, dir)
		if speed, ok := r.Get(p.speed); ok && speed == 0 {
			r.Clear(p.dir)
		}
	}
	return rejected
}

// applySensors drops observations from sensors the station does not have.
func applySensors(r weather.Record, opts Options) {
	if !opts.UVSensor {
		r.Clear("UV")
	}
	if !opts.SolarSensor {
		r.Clear("radiation")
	}
}
