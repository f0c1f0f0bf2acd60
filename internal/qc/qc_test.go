package qc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/wxarchive/internal/config"
	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

func checker(t *testing.T) *Checker {
	t.Helper()
	c, err := New(map[string]config.Bounds{
		"outTemp":     {Min: -40, Max: 120, Unit: units.DegreeF},
		"outHumidity": {Min: 0, Max: 100, Unit: units.Percent},
		"barometer":   {Min: 26, Max: 32.5, Unit: units.InHg},
	})
	require.NoError(t, err)
	return c
}

func TestApplyUS(t *testing.T) {
	c := checker(t)
	rec := weather.NewRecord(time.Unix(1700000000, 0), units.US)
	rec.Set("outTemp", 130)
	rec.Set("outHumidity", 100)
	rec.Set("barometer", 30.1)
	rec.Set("rain", 99)

	v := c.Apply(rec)
	require.Len(t, v, 1)
	assert.Equal(t, "outTemp", v[0].ObsType)
	_, ok := rec.Get("outTemp")
	assert.False(t, ok)
	assert.Equal(t, 100.0, rec.Values["outHumidity"])
	assert.Equal(t, 99.0, rec.Values["rain"])
}

func TestApplyConvertsBounds(t *testing.T) {
	c := checker(t)
	rec := weather.NewRecord(time.Unix(1700000000, 0), units.MetricWX)
	rec.Set("outTemp", 45)      // 113°F, fine
	rec.Set("barometer", 870.0) // 25.7 inHg, too low

	v := c.Apply(rec)
	require.Len(t, v, 1)
	assert.Equal(t, "barometer", v[0].ObsType)
	assert.Equal(t, units.Mbar, v[0].Unit)
	assert.InDelta(t, 880.46, v[0].Min, 0.01)
	assert.Equal(t, 45.0, rec.Values["outTemp"])
}

func TestNewRejectsMismatchedUnit(t *testing.T) {
	_, err := New(map[string]config.Bounds{"outTemp": {Min: 0, Max: 10, Unit: units.InHg}})
	assert.Error(t, err)
}
