package weather

import (
	"time"

	"github.com/i474232898/wxarchive/internal/units"
)

// Station describes where the observations were taken. Latitude and longitude
// may be nil when the station has only been described by city/country.
type Station struct {
	Latitude     *float64   `json:"latitude,omitempty" yaml:"latitude"`
	Longitude    *float64   `json:"longitude,omitempty" yaml:"longitude"`
	Altitude     float64    `json:"altitude" yaml:"altitude"`
	AltitudeUnit units.Unit `json:"altitudeUnit" yaml:"altitude_unit"`
	City         string     `json:"city,omitempty" yaml:"city"`
	Country      string     `json:"country,omitempty" yaml:"country"`
}

// AltitudeMeters returns the station altitude in meters.
func (s Station) AltitudeMeters() (float64, error) {
	u := s.AltitudeUnit
	if u == "" {
		u = units.Meter
	}
	return units.Convert(s.Altitude, u, units.Meter)
}

// Record is a single archive record. DateTime marks the end of the archive
// interval and is always UTC. A key missing from Values is a missing observation.
type Record struct {
	DateTime time.Time          `json:"dateTime"`
	Interval int                `json:"interval"` // minutes
	UsUnits  units.System       `json:"usUnits"`
	Values   map[string]float64 `json:"values"`
}

// NewRecord returns an empty record for ts in the given unit system.
func NewRecord(ts time.Time, system units.System) Record {
	return Record{
		DateTime: ts.UTC(),
		UsUnits:  system,
		Values:   make(map[string]float64),
	}
}

// Get returns an observation value and whether it is present.
func (r Record) Get(obsType string) (float64, bool) {
	v, ok := r.Values[obsType]
	return v, ok
}

// Set stores an observation value.
func (r Record) Set(obsType string, v float64) {
	r.Values[obsType] = v
}

// Clear marks an observation as missing.
func (r Record) Clear(obsType string) {
	delete(r.Values, obsType)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	c.Values = make(map[string]float64, len(r.Values))
	for k, v := range r.Values {
		c.Values[k] = v
	}
	return c
}

// ConvertTo returns the record expressed in another unit system.
func (r Record) ConvertTo(system units.System) (Record, error) {
	if r.UsUnits == system {
		return r.Clone(), nil
	}
	vals, err := units.ConvertValues(r.Values, r.UsUnits, system)
	if err != nil {
		return Record{}, err
	}
	c := r
	c.UsUnits = system
	c.Values = vals
	return c, nil
}

// RawRecord is one source row exactly as read, keyed by source field name.
type RawRecord map[string]string

// FieldSpec maps one archive field onto a source field.
type FieldSpec struct {
	SourceField string     `json:"sourceField" yaml:"source_field"`
	Unit        units.Unit `json:"unit,omitempty" yaml:"unit"`
	// Cumulative marks a running total (e.g. a rain counter) that must be
	// turned into per-record deltas.
	Cumulative bool `json:"cumulative,omitempty" yaml:"cumulative"`
	// Text marks a direction given as a compass point (N, NNE, ...).
	Text bool `json:"text,omitempty" yaml:"text"`
}

// FieldMap maps archive field names to source fields. dateTime is mandatory;
// its Unit is either unix_epoch or empty, in which case the source's
// date-time format applies.
type FieldMap map[string]FieldSpec

// Period is a chunk of a source that is fetched and processed as one unit.
type Period struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DaySummary holds per-observation statistics for one day.
type DaySummary struct {
	Date    time.Time           `json:"date"`
	UsUnits units.System        `json:"usUnits"`
	Records int                 `json:"records"`
	Stats   map[string]ObsStats `json:"stats"`
}

// ObsStats are the accumulated statistics of one observation type.
type ObsStats struct {
	Min     float64   `json:"min"`
	MinTime time.Time `json:"minTime"`
	Max     float64   `json:"max"`
	MaxTime time.Time `json:"maxTime"`
	Sum     float64   `json:"sum"`
	Count   int       `json:"count"`
	Avg     float64   `json:"avg"`
}
