package units

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// System identifies a unit system the way the archive column usUnits does.
type System int

const (
	US       System = 1
	Metric   System = 16
	MetricWX System = 17
)

func (s System) String() string {
	switch s {
	case US:
		return "US"
	case Metric:
		return "METRIC"
	case MetricWX:
		return "METRICWX"
	default:
		return "System(" + strconv.Itoa(int(s)) + ")"
	}
}

// Valid reports whether s is one of the known unit systems.
func (s System) Valid() bool {
	return s == US || s == Metric || s == MetricWX
}

// ParseSystem accepts a system name or its numeric usUnits code.
func ParseSystem(s string) (System, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "US", "1":
		return US, nil
	case "METRIC", "16":
		return Metric, nil
	case "METRICWX", "17":
		return MetricWX, nil
	}
	return 0, fmt.Errorf("unknown unit system %q", s)
}

// Unit is a unit name, e.g. "degree_F".
type Unit string

const (
	DegreeF             Unit = "degree_F"
	DegreeC             Unit = "degree_C"
	DegreeK             Unit = "degree_K"
	InHg                Unit = "inHg"
	Mbar                Unit = "mbar"
	HPa                 Unit = "hPa"
	KPa                 Unit = "kPa"
	MmHg                Unit = "mmHg"
	MilePerHour         Unit = "mile_per_hour"
	KmPerHour           Unit = "km_per_hour"
	MeterPerSecond      Unit = "meter_per_second"
	Knot                Unit = "knot"
	Inch                Unit = "inch"
	Cm                  Unit = "cm"
	Mm                  Unit = "mm"
	InchPerHour         Unit = "inch_per_hour"
	CmPerHour           Unit = "cm_per_hour"
	MmPerHour           Unit = "mm_per_hour"
	Foot                Unit = "foot"
	Meter               Unit = "meter"
	Mile                Unit = "mile"
	Km                  Unit = "km"
	Percent             Unit = "percent"
	DegreeCompass       Unit = "degree_compass"
	WattPerMeterSquared Unit = "watt_per_meter_squared"
	UVIndex             Unit = "uv_index"
	Volt                Unit = "volt"
	UnixEpoch           Unit = "unix_epoch"
	Minute              Unit = "minute"
	Count               Unit = "count"
)

// Group is a family of mutually convertible units.
type Group string

const (
	GroupTemperature Group = "group_temperature"
	GroupPressure    Group = "group_pressure"
	GroupSpeed       Group = "group_speed"
	GroupRain        Group = "group_rain"
	GroupRainRate    Group = "group_rainrate"
	GroupPercent     Group = "group_percent"
	GroupDirection   Group = "group_direction"
	GroupRadiation   Group = "group_radiation"
	GroupUV          Group = "group_uv"
	GroupAltitude    Group = "group_altitude"
	GroupDistance    Group = "group_distance"
	GroupVolt        Group = "group_volt"
	GroupInterval    Group = "group_interval"
	GroupTime        Group = "group_time"
	GroupCount       Group = "group_count"
)

var (
	ErrUnknownUnit   = errors.New("unknown unit")
	ErrGroupMismatch = errors.New("units belong to different groups")
)

type unitDef struct {
	group    Group
	toBase   func(float64) float64
	fromBase func(float64) float64
}

func linear(group Group, factor float64) unitDef {
	return unitDef{
		group:    group,
		toBase:   func(v float64) float64 { return v * factor },
		fromBase: func(v float64) float64 { return v / factor },
	}
}

// Base units: degree_C, mbar, meter_per_second, mm, mm_per_hour, meter, km.
var unitTable = map[Unit]unitDef{
	DegreeC: linear(GroupTemperature, 1),
	DegreeF: {
		group:    GroupTemperature,
		toBase:   func(v float64) float64 { return (v - 32) * 5 / 9 },
		fromBase: func(v float64) float64 { return v*9/5 + 32 },
	},
	DegreeK: {
		group:    GroupTemperature,
		toBase:   func(v float64) float64 { return v - 273.15 },
		fromBase: func(v float64) float64 { return v + 273.15 },
	},

	Mbar: linear(GroupPressure, 1),
	HPa:  linear(GroupPressure, 1),
	KPa:  linear(GroupPressure, 10),
	InHg: linear(GroupPressure, 33.8638866667),
	MmHg: linear(GroupPressure, 1.33322387415),

	MeterPerSecond: linear(GroupSpeed, 1),
	KmPerHour:      linear(GroupSpeed, 1/3.6),
	MilePerHour:    linear(GroupSpeed, 0.44704),
	Knot:           linear(GroupSpeed, 0.514444444),

	Mm:   linear(GroupRain, 1),
	Cm:   linear(GroupRain, 10),
	Inch: linear(GroupRain, 25.4),

	MmPerHour:   linear(GroupRainRate, 1),
	CmPerHour:   linear(GroupRainRate, 10),
	InchPerHour: linear(GroupRainRate, 25.4),

	Meter: linear(GroupAltitude, 1),
	Foot:  linear(GroupAltitude, 0.3048),

	Km:   linear(GroupDistance, 1),
	Mile: linear(GroupDistance, 1.609344),

	Percent:             linear(GroupPercent, 1),
	DegreeCompass:       linear(GroupDirection, 1),
	WattPerMeterSquared: linear(GroupRadiation, 1),
	UVIndex:             linear(GroupUV, 1),
	Volt:                linear(GroupVolt, 1),
	Minute:              linear(GroupInterval, 1),
	UnixEpoch:           linear(GroupTime, 1),
	Count:               linear(GroupCount, 1),
}

// GroupOfUnit returns the group a unit belongs to.
func GroupOfUnit(u Unit) (Group, error) {
	def, ok := unitTable[u]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, u)
	}
	return def.group, nil
}

// Known reports whether u is a recognised unit.
func Known(u Unit) bool {
	_, ok := unitTable[u]
	return ok
}

// Convert converts value from one unit to another of the same group.
func Convert(value float64, from, to Unit) (float64, error) {
	if from == to {
		if !Known(from) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, from)
		}
		return value, nil
	}
	f, ok := unitTable[from]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, from)
	}
	t, ok := unitTable[to]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, to)
	}
	if f.group != t.group {
		return 0, fmt.Errorf("%w: %s (%s) -> %s (%s)", ErrGroupMismatch, from, f.group, to, t.group)
	}
	return t.fromBase(f.toBase(value)), nil
}

var systemUnits = map[System]map[Group]Unit{
	US: {
		GroupTemperature: DegreeF,
		GroupPressure:    InHg,
		GroupSpeed:       MilePerHour,
		GroupRain:        Inch,
		GroupRainRate:    InchPerHour,
		GroupAltitude:    Foot,
		GroupDistance:    Mile,
	},
	Metric: {
		GroupTemperature: DegreeC,
		GroupPressure:    Mbar,
		GroupSpeed:       KmPerHour,
		GroupRain:        Cm,
		GroupRainRate:    CmPerHour,
		GroupAltitude:    Meter,
		GroupDistance:    Km,
	},
	MetricWX: {
		GroupTemperature: DegreeC,
		GroupPressure:    Mbar,
		GroupSpeed:       MeterPerSecond,
		GroupRain:        Mm,
		GroupRainRate:    MmPerHour,
		GroupAltitude:    Meter,
		GroupDistance:    Km,
	},
}

var systemIndependent = map[Group]Unit{
	GroupPercent:   Percent,
	GroupDirection: DegreeCompass,
	GroupRadiation: WattPerMeterSquared,
	GroupUV:        UVIndex,
	GroupVolt:      Volt,
	GroupInterval:  Minute,
	GroupTime:      UnixEpoch,
	GroupCount:     Count,
}

// SystemIndependent reports whether a group uses the same unit in every system.
func SystemIndependent(group Group) bool {
	_, ok := systemIndependent[group]
	return ok
}

// UnitFor returns the unit a system uses for a group.
func UnitFor(system System, group Group) (Unit, error) {
	if u, ok := systemIndependent[group]; ok {
		return u, nil
	}
	byGroup, ok := systemUnits[system]
	if !ok {
		return "", fmt.Errorf("unknown unit system %d", int(system))
	}
	u, ok := byGroup[group]
	if !ok {
		return "", fmt.Errorf("no unit for %s in %s", group, system)
	}
	return u, nil
}

// UnitOf returns the unit an observation type is stored in under system.
func UnitOf(system System, obsType string) (Unit, error) {
	return UnitFor(system, GroupOf(obsType))
}

// ConvertValue converts a single observation value between unit systems.
func ConvertValue(obsType string, value float64, from, to System) (float64, error) {
	if from == to {
		return value, nil
	}
	fu, err := UnitOf(from, obsType)
	if err != nil {
		return 0, err
	}
	tu, err := UnitOf(to, obsType)
	if err != nil {
		return 0, err
	}
	return Convert(value, fu, tu)
}

// ConvertValues returns a copy of values expressed in another unit system.
func ConvertValues(values map[string]float64, from, to System) (map[string]float64, error) {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		cv, err := ConvertValue(k, v, from, to)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", k, err)
		}
		out[k] = cv
	}
	return out, nil
}
