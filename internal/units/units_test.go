package units

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	cases := []struct {
		name     string
		value    float64
		from, to Unit
		want     float64
	}{
		{"freezing F to C", 32, DegreeF, DegreeC, 0},
		{"boiling C to F", 100, DegreeC, DegreeF, 212},
		{"kelvin to C", 273.15, DegreeK, DegreeC, 0},
		{"inHg to mbar", 29.92, InHg, Mbar, 1013.21},
		{"hPa to mbar", 1000, HPa, Mbar, 1000},
		{"mph to km/h", 10, MilePerHour, KmPerHour, 16.0934},
		{"km/h to m/s", 36, KmPerHour, MeterPerSecond, 10},
		{"inch to mm", 1, Inch, Mm, 25.4},
		{"cm to inch", 2.54, Cm, Inch, 1},
		{"foot to meter", 1000, Foot, Meter, 304.8},
		{"mile to km", 1, Mile, Km, 1.609344},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Convert(tc.value, tc.from, tc.to)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 0.01)
		})
	}
}

func TestConvertRejectsMismatchedGroups(t *testing.T) {
	_, err := Convert(10, DegreeC, Mbar)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGroupMismatch))

	_, err = Convert(10, "furlong", Meter)
	assert.True(t, errors.Is(err, ErrUnknownUnit))
}

func TestConvertValuesBetweenSystems(t *testing.T) {
	in := map[string]float64{
		"outTemp":     68,
		"barometer":   30,
		"windSpeed":   10,
		"rain":        0.1,
		"outHumidity": 55,
		"windDir":     270,
		"cloudbase":   1000,
	}

	out, err := ConvertValues(in, US, MetricWX)
	require.NoError(t, err)

	assert.InDelta(t, 20, out["outTemp"], 0.001)
	assert.InDelta(t, 1015.92, out["barometer"], 0.01)
	assert.InDelta(t, 4.4704, out["windSpeed"], 0.0001)
	assert.InDelta(t, 2.54, out["rain"], 0.0001)
	assert.Equal(t, 55.0, out["outHumidity"])
	assert.Equal(t, 270.0, out["windDir"])
	assert.InDelta(t, 304.8, out["cloudbase"], 0.001)

	back, err := ConvertValues(out, MetricWX, US)
	require.NoError(t, err)
	for k, v := range in {
		assert.InDelta(t, v, back[k], 1e-9, k)
	}
}

func TestParseSystem(t *testing.T) {
	for in, want := range map[string]System{"us": US, "16": Metric, "METRICWX": MetricWX} {
		got, err := ParseSystem(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSystem("imperial")
	assert.Error(t, err)
}

func TestUnitForSystemIndependentGroups(t *testing.T) {
	u, err := UnitOf(Metric, "outHumidity")
	require.NoError(t, err)
	assert.Equal(t, Percent, u)

	u, err = UnitOf(US, "rain")
	require.NoError(t, err)
	assert.Equal(t, Inch, u)

	assert.Equal(t, GroupCount, GroupOf("somethingCustom"))
}
