package importer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func recAt(minutes int, vals map[string]float64) weather.Record {
	r := weather.NewRecord(t0.Add(time.Duration(minutes)*time.Minute), units.MetricWX)
	for k, v := range vals {
		r.Set(k, v)
	}
	return r
}

func TestSortAndDedupe(t *testing.T) {
	recs := []weather.Record{
		recAt(10, map[string]float64{"outTemp": 2}),
		recAt(5, map[string]float64{"outTemp": 1}),
		recAt(10, map[string]float64{"outTemp": 99}),
	}
	out, dropped := sortAndDedupe(recs)
	require.Len(t, out, 2)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1.0, out[0].Values["outTemp"])
	assert.Equal(t, 2.0, out[1].Values["outTemp"])
}

func TestCumulativeTracker(t *testing.T) {
	c := newCumulativeTracker()
	first := []weather.Record{
		recAt(5, map[string]float64{"rain": 1.0}),
		recAt(10, map[string]float64{"rain": 1.5}),
		recAt(15, map[string]float64{"rain": 0.2}), // reset
	}
	c.apply(first, []string{"rain"})
	_, ok := first[0].Get("rain")
	assert.False(t, ok)
	assert.InDelta(t, 0.5, first[1].Values["rain"], 1e-9)
	assert.InDelta(t, 0.2, first[2].Values["rain"], 1e-9)

	// The running total carries into the next period.
	second := []weather.Record{
		recAt(20, map[string]float64{"rain": 0.6}),
		recAt(25, nil),
		recAt(30, map[string]float64{"rain": 0.9}),
	}
	c.apply(second, []string{"rain"})
	assert.InDelta(t, 0.4, second[0].Values["rain"], 1e-9)
	_, ok = second[1].Get("rain")
	assert.False(t, ok)
	_, ok = second[2].Get("rain")
	assert.False(t, ok, "a missing total breaks the chain")
}

func TestIntervalAssignerDerive(t *testing.T) {
	a := newIntervalAssigner(Options{Interval: IntervalDerive})
	recs := []weather.Record{recAt(5, nil), recAt(10, nil), recAt(20, nil)}
	require.NoError(t, a.apply(recs, "p1"))
	assert.Equal(t, []int{5, 5, 10}, []int{recs[0].Interval, recs[1].Interval, recs[2].Interval})

	// A single record after an earlier period uses the gap to it.
	next := []weather.Record{recAt(50, nil)}
	require.NoError(t, a.apply(next, "p2"))
	assert.Equal(t, 30, next[0].Interval)

	b := newIntervalAssigner(Options{Interval: IntervalDerive})
	err := b.apply([]weather.Record{recAt(5, nil)}, "p1")
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, errSingleRecord)

	c := newIntervalAssigner(Options{Interval: IntervalDerive})
	err = c.apply([]weather.Record{recAt(5, nil), recAt(5, nil)}, "p1")
	assert.ErrorIs(t, err, errNonIncreasing)

	d := newIntervalAssigner(Options{Interval: IntervalDerive})
	short := []weather.Record{
		weather.NewRecord(t0, units.US),
		weather.NewRecord(t0.Add(20*time.Second), units.US),
	}
	assert.ErrorIs(t, d.apply(short, "p1"), errIntervalZero)
}

func TestIntervalAssignerFixed(t *testing.T) {
	recs := []weather.Record{recAt(5, nil), recAt(7, nil)}
	require.NoError(t, newIntervalAssigner(Options{Interval: IntervalConf, ArchiveInterval: 15}).apply(recs, "p"))
	assert.Equal(t, 15, recs[1].Interval)

	require.NoError(t, newIntervalAssigner(Options{Interval: "10"}).apply(recs, "p"))
	assert.Equal(t, 10, recs[0].Interval)
}

func TestInRange(t *testing.T) {
	from, to := t0, t0.Add(time.Hour)
	assert.False(t, inRange(from, from, to))
	assert.True(t, inRange(from.Add(time.Second), from, to))
	assert.True(t, inRange(to, from, to))
	assert.False(t, inRange(to.Add(time.Second), from, to))
	assert.True(t, inRange(to.Add(time.Hour), from, time.Time{}))
	assert.True(t, inRange(from.Add(-time.Hour), time.Time{}, to))
}

func TestNormalizeWind(t *testing.T) {
	r := recAt(5, map[string]float64{
		"windSpeed": 3, "windDir": 360,
		"windGust": 5, "windGustDir": 400,
	})
	assert.Equal(t, 1, normalizeWind(r, [2]float64{0, 360}))
	assert.Equal(t, 0.0, r.Values["windDir"])
	_, ok := r.Get("windGustDir")
	assert.False(t, ok)

	r = recAt(5, map[string]float64{"windSpeed": 0, "windDir": 90})
	assert.Zero(t, normalizeWind(r, [2]float64{0, 360}))
	_, ok = r.Get("windDir")
	assert.False(t, ok, "calm wind has no direction")

	r = recAt(5, map[string]float64{"windSpeed": 2, "windDir": -90})
	assert.Zero(t, normalizeWind(r, [2]float64{-180, 180}))
	assert.Equal(t, 270.0, r.Values["windDir"])
}

func TestApplySensors(t *testing.T) {
	r := recAt(5, map[string]float64{"UV": 3, "radiation": 400})
	applySensors(r, Options{UVSensor: false, SolarSensor: true})
	_, ok := r.Get("UV")
	assert.False(t, ok)
	assert.Equal(t, 400.0, r.Values["radiation"])
}
