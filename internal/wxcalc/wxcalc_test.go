package wxcalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

func TestFormulas(t *testing.T) {
	dp, ok := DewpointC(20, 50)
	require.True(t, ok)
	assert.InDelta(t, 9.25, dp, 0.05)

	_, ok = DewpointC(20, 0)
	assert.False(t, ok)

	// 5°F with a 25 mph wind is about -17°F.
	wc := WindchillC((5-32)*5.0/9, 25*0.44704)
	assert.InDelta(t, -17.4, wc*9/5+32, 0.2)
	// No chill in calm air.
	assert.Equal(t, 5.0, WindchillC(5, 0.5))

	// 90°F at 70% is about 106°F.
	hi := HeatindexC((90-32)*5.0/9, 70)
	assert.InDelta(t, 106, hi*9/5+32, 1)
	assert.Equal(t, 2.0, HeatindexC(2, 90))

	h, ok := HumidexC(30, 50)
	require.True(t, ok)
	assert.InDelta(t, 36.3, h, 0.2)

	assert.InDelta(t, 24.8, ApparentTempC(25, 50, 2), 0.1)

	cb, ok := CloudbaseM(20, 50, 100)
	require.True(t, ok)
	assert.InDelta(t, 1410, cb, 2)

	slp := SealevelMbar(1000, 100, 15)
	assert.InDelta(t, 1011.9, slp, 0.2)
	assert.InDelta(t, 1000, StationMbar(slp, 100, 15), 1e-9)

	assert.InDelta(t, 1011.6, AltimeterMbar(1000, 100), 0.3)

	assert.InDelta(t, 3.6, WindrunKm(1, 60), 1e-9)
}

func TestFillMissingUS(t *testing.T) {
	c, err := New(weather.Station{Altitude: 328.084, AltitudeUnit: units.Foot})
	require.NoError(t, err)

	rec := weather.NewRecord(time.Unix(1700000000, 0), units.US)
	rec.Interval = 5
	rec.Set("outTemp", 68)
	rec.Set("outHumidity", 50)
	rec.Set("windSpeed", 10)
	rec.Set("pressure", 29.53)
	rec.Set("heatindex", 99) // supplied by the source, must survive

	added, err := c.FillMissing(rec)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"dewpoint", "humidex", "cloudbase", "windchill", "appTemp",
		"windrun", "barometer", "altimeter",
	}, added)
	assert.Equal(t, 99.0, rec.Values["heatindex"])

	// dew point stored in °F
	assert.InDelta(t, 48.65, rec.Values["dewpoint"], 0.1)
	// 10 mph for 5 minutes
	assert.InDelta(t, 10.0/12, rec.Values["windrun"], 1e-6)
	// barometer above station pressure at 100 m
	assert.Greater(t, rec.Values["barometer"], rec.Values["pressure"])
	// 68°F is too warm for wind chill
	assert.Equal(t, 68.0, rec.Values["windchill"])
}

func TestFillMissingPressureFromBarometer(t *testing.T) {
	c, err := New(weather.Station{Altitude: 100, AltitudeUnit: units.Meter})
	require.NoError(t, err)

	rec := weather.NewRecord(time.Unix(1700000000, 0), units.MetricWX)
	rec.Set("barometer", 1011.9)

	added, err := c.FillMissing(rec)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pressure", "altimeter"}, added)
	assert.InDelta(t, 1000, rec.Values["pressure"], 0.2)
}

func TestFillMissingNeedsInputs(t *testing.T) {
	c, err := New(weather.Station{})
	require.NoError(t, err)

	rec := weather.NewRecord(time.Unix(1700000000, 0), units.Metric)
	rec.Set("outTemp", 10)

	added, err := c.FillMissing(rec)
	require.NoError(t, err)
	assert.Empty(t, added)
}
