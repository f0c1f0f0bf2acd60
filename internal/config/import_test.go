package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/wxarchive/internal/units"
)

const sampleImport = `
station:
  latitude: 52.16
  longitude: 4.49
  altitude: 700
  altitude_unit: foot
target_unit_system: METRICWX
archive_interval: 10
qc:
  min_max:
    outTemp: [-40, 120, degree_F]
    barometer: [26, 32.5, inHg]
source: csv
csv:
  file: data/station.csv
  delimiter: ";"
  decimal: ","
  interval: derive
  rain: cumulative
  wind_direction: [-180, 180]
  calc_missing: false
  raw_datetime_format: "%d/%m/%Y %H:%M"
  field_map:
    dateTime:
      source_field: when
    outTemp:
      source_field: temp
      unit: degree_C
    rain:
      source_field: rain_total
      unit: mm
      cumulative: true
`

func TestParseImport(t *testing.T) {
	cfg, err := ParseImport([]byte(sampleImport))
	require.NoError(t, err)

	assert.Equal(t, units.MetricWX, cfg.UnitSystem())
	assert.Equal(t, 10, cfg.ArchiveInterval)
	require.NotNil(t, cfg.Station.Latitude)
	assert.Equal(t, 52.16, *cfg.Station.Latitude)

	alt, err := cfg.Station.AltitudeMeters()
	require.NoError(t, err)
	assert.InDelta(t, 213.36, alt, 0.001)

	b := cfg.QC.MinMax["barometer"]
	assert.Equal(t, Bounds{Min: 26, Max: 32.5, Unit: units.InHg}, b)

	require.NotNil(t, cfg.CSV)
	assert.Equal(t, ";", cfg.CSV.Delimiter)
	assert.Equal(t, []float64{-180, 180}, cfg.CSV.WindDirection)
	assert.False(t, BoolOr(cfg.CSV.CalcMissing, true))
	assert.True(t, BoolOr(cfg.CSV.QC, true))
	assert.True(t, cfg.CSV.FieldMap["rain"].Cumulative)
	assert.Equal(t, units.DegreeC, cfg.CSV.FieldMap["outTemp"].Unit)

	src, err := cfg.DefaultSource()
	require.NoError(t, err)
	assert.Equal(t, SourceCSV, src)
}

func TestParseImportRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown unit system":    "target_unit_system: imperial\n",
		"bad qc unit":            "qc:\n  min_max:\n    outTemp: [0, 1, furlong]\n",
		"inverted qc bounds":     "qc:\n  min_max:\n    outTemp: [10, 1, degree_F]\n",
		"bad interval":           "csv:\n  file: x.csv\n  interval: sometimes\n  field_map:\n    dateTime:\n      source_field: t\n",
		"bad rain mode":          "csv:\n  file: x.csv\n  rain: daily\n  field_map:\n    dateTime:\n      source_field: t\n",
		"missing csv file":       "csv:\n  field_map:\n    dateTime:\n      source_field: t\n",
		"source without section": "source: wu\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseImport([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestDefaultSource(t *testing.T) {
	cfg, err := ParseImport([]byte("wu:\n  station_id: IXYZ1\n"))
	require.NoError(t, err)
	src, err := cfg.DefaultSource()
	require.NoError(t, err)
	assert.Equal(t, SourceWU, src)
	assert.Equal(t, units.US, cfg.UnitSystem())

	cfg, err = ParseImport([]byte("wu:\n  station_id: IXYZ1\ncumulus:\n  directory: /tmp\n"))
	require.NoError(t, err)
	_, err = cfg.DefaultSource()
	assert.Error(t, err)

	empty, err := ParseImport([]byte("{}"))
	require.NoError(t, err)
	_, err = empty.DefaultSource()
	assert.ErrorIs(t, err, ErrNoSource)
}
