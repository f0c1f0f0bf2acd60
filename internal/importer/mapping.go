package importer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

const dateTimeField = "dateTime"

var (
	errMissingDateTime = errors.New("dateTime must be mapped")
	errNoUnit          = errors.New("no unit given")
	errNotANumber      = errors.New("not a number")
	errNotACompass     = errors.New("not a compass direction")
)

// compassPoints maps 16-point compass names onto degrees.
var compassPoints = map[string]float64{
	"N": 0, "NNE": 22.5, "NE": 45, "ENE": 67.5,
	"E": 90, "ESE": 112.5, "SE": 135, "SSE": 157.5,
	"S": 180, "SSW": 202.5, "SW": 225, "WSW": 247.5,
	"W": 270, "WNW": 292.5, "NW": 315, "NNW": 337.5,
}

// missingMarkers are source values meaning "no observation".
var missingMarkers = map[string]bool{
	"": true, "-": true, "--": true, "---": true,
	"N/A": true, "NA": true, "NAN": true, "NULL": true, "NONE": true,
}

// fieldPlan is a validated field map entry.
type fieldPlan struct {
	obs  string
	spec weather.FieldSpec
	// target is the unit the value is stored in; empty means store unconverted.
	target units.Unit
}

// mapper turns raw source records into archive records.
type mapper struct {
	opts     Options
	layout   string
	dateTime weather.FieldSpec
	fields   []fieldPlan

	// missingFields are mapped source fields absent from the source data.
	missingFields map[string]bool
	warn          func(format string, args ...any)
}

func newMapper(fm weather.FieldMap, opts Options, warn func(string, ...any)) (*mapper, error) {
	dt, ok := fm[dateTimeField]
	if !ok || dt.SourceField == "" {
		return nil, &MapError{Field: dateTimeField, Err: errMissingDateTime}
	}
	m := &mapper{
		opts:          opts,
		dateTime:      dt,
		missingFields: make(map[string]bool),
		warn:          warn,
	}
	if dt.Unit != units.UnixEpoch {
		if dt.Unit != "" {
			return nil, &MapError{Field: dateTimeField, Err: fmt.Errorf("unit must be %s or empty, got %q", units.UnixEpoch, dt.Unit)}
		}
		layout, err := strftimeLayout(opts.DateTimeFormat)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		m.layout = layout
	}

	for obs, spec := range fm {
		if obs == dateTimeField {
			continue
		}
		if spec.SourceField == "" {
			return nil, &MapError{Field: obs, Err: errors.New("source_field is empty")}
		}
		plan := fieldPlan{obs: obs, spec: spec}
		group := units.GroupOf(obs)

		switch {
		case spec.Text:
			if group != units.GroupDirection {
				return nil, &MapError{Field: obs, Err: fmt.Errorf("text values only apply to directions, not %s", group)}
			}
			plan.target = units.DegreeCompass
		case group == units.GroupCount:
			if spec.Unit != "" && !units.Known(spec.Unit) {
				return nil, &MapError{Field: obs, Err: fmt.Errorf("%w: %q", units.ErrUnknownUnit, spec.Unit)}
			}
		default:
			target, err := units.UnitFor(opts.System, group)
			if err != nil {
				return nil, &MapError{Field: obs, Err: err}
			}
			plan.target = target
			if spec.Unit == "" {
				if !units.SystemIndependent(group) {
					return nil, &MapError{Field: obs, Err: errNoUnit}
				}
				plan.spec.Unit = target
			}
			if _, err := units.Convert(0, plan.spec.Unit, target); err != nil {
				return nil, &MapError{Field: obs, Err: err}
			}
		}
		m.fields = append(m.fields, plan)
	}
	return m, nil
}

// checkHeader warns once about mapped fields the source does not carry. A
// missing dateTime field is fatal.
func (m *mapper) checkHeader(sample weather.RawRecord) error {
	if _, ok := sample[m.dateTime.SourceField]; !ok {
		return &MapError{Field: dateTimeField, Err: fmt.Errorf("source field %q not found", m.dateTime.SourceField)}
	}
	for _, f := range m.fields {
		if _, ok := sample[f.spec.SourceField]; !ok && !m.missingFields[f.spec.SourceField] {
			m.missingFields[f.spec.SourceField] = true
			m.warn("source field %q mapped to %s not found; %s will be missing", f.spec.SourceField, f.obs, f.obs)
		}
	}
	return nil
}

// mapRecord converts one raw record. invalid counts values dropped because
// they could not be parsed.
func (m *mapper) mapRecord(raw weather.RawRecord, period string, line int) (rec weather.Record, invalid int, err error) {
	rawTS := strings.TrimSpace(raw[m.dateTime.SourceField])
	ts, err := m.parseTime(rawTS)
	if err != nil {
		return weather.Record{}, 0, &DecodeError{Period: period, Line: line, Field: dateTimeField, Value: rawTS, Err: err}
	}
	rec = weather.NewRecord(ts, m.opts.System)

	for _, f := range m.fields {
		s, ok := raw[f.spec.SourceField]
		if !ok {
			continue
		}
		v, present, perr := m.parseValue(s, f.spec.Text)
		if perr != nil {
			if !m.opts.IgnoreInvalidData {
				return weather.Record{}, 0, &DecodeError{Period: period, Line: line, Field: f.obs, Value: s, Err: perr}
			}
			invalid++
			m.warn("%s record %d: ignoring %s=%q: %v", period, line, f.obs, s, perr)
			continue
		}
		if !present {
			continue
		}
		if f.target != "" && f.spec.Unit != f.target {
			v, err = units.Convert(v, f.spec.Unit, f.target)
			if err != nil {
				return weather.Record{}, 0, &MapError{Field: f.obs, Err: err}
			}
		}
		rec.Set(f.obs, v)
	}
	return rec, invalid, nil
}

func (m *mapper) parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if m.layout == "" {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid unix timestamp: %w", err)
		}
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
	}
	ts, err := time.ParseInLocation(m.layout, s, m.opts.Location)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// parseValue returns the numeric value of s and whether it is present.
func (m *mapper) parseValue(s string, text bool) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if missingMarkers[strings.ToUpper(s)] {
		return 0, false, nil
	}
	if text {
		deg, ok := compassPoints[strings.ToUpper(s)]
		if !ok {
			return 0, false, errNotACompass
		}
		return deg, true, nil
	}
	if m.opts.Decimal != "." {
		s = strings.Replace(s, m.opts.Decimal, ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, errNotANumber
	}
	return v, true, nil
}
