package importer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/i474232898/wxarchive/internal/config"
	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

const (
	IntervalDerive = "derive"
	IntervalConf   = "conf"

	RainCumulative = "cumulative"
	RainDiscrete   = "discrete"

	defaultDateTimeFormat = "%Y-%m-%d %H:%M:%S"
)

// Options control one import run.
type Options struct {
	System   units.System
	Station  weather.Station
	Location *time.Location

	// Interval is "derive", "conf" or a whole number of minutes.
	Interval        string
	ArchiveInterval int

	Rain          string
	WindDirection [2]float64

	QC     bool
	MinMax map[string]config.Bounds

	CalcMissing       bool
	IgnoreInvalidData bool
	UVSensor          bool
	SolarSensor       bool

	Tranche int

	Decimal        string
	DateTimeFormat string

	// Records with From < dateTime <= To are imported; zero values leave the
	// range open.
	From time.Time
	To   time.Time

	DryRun bool
	// Update overwrites archive records that share a timestamp.
	Update bool
}

// OptionsFrom builds the options for source from the import configuration.
func OptionsFrom(cfg *config.ImportConfig, source string) (Options, error) {
	common, ok := cfg.SourceOptions(source)
	if !ok {
		return Options{}, &ConfigError{Err: fmt.Errorf("no %q section in import config", source)}
	}
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, &ConfigError{Err: err}
	}

	opts := Options{
		System:            cfg.UnitSystem(),
		Station:           cfg.Station,
		Location:          loc,
		Interval:          common.Interval,
		ArchiveInterval:   cfg.ArchiveInterval,
		Rain:              common.Rain,
		WindDirection:     [2]float64{0, 360},
		QC:                config.BoolOr(common.QC, true),
		MinMax:            cfg.QC.MinMax,
		CalcMissing:       config.BoolOr(common.CalcMissing, true),
		IgnoreInvalidData: config.BoolOr(common.IgnoreInvalidData, true),
		UVSensor:          config.BoolOr(common.UVSensor, true),
		SolarSensor:       config.BoolOr(common.SolarSensor, true),
		Tranche:           common.Tranche,
		Decimal:           ".",
		DateTimeFormat:    defaultDateTimeFormat,
	}
	if len(common.WindDirection) == 2 {
		opts.WindDirection = [2]float64{common.WindDirection[0], common.WindDirection[1]}
	}

	switch source {
	case config.SourceCSV:
		if cfg.CSV.Decimal != "" {
			opts.Decimal = cfg.CSV.Decimal
		}
		if cfg.CSV.DateTimeFormat != "" {
			opts.DateTimeFormat = cfg.CSV.DateTimeFormat
		}
	case config.SourceCumulus:
		if cfg.Cumulus.Decimal != "" {
			opts.Decimal = cfg.Cumulus.Decimal
		}
	case config.SourceOpenMeteo:
		// hourly sums
		if opts.Interval == "" {
			opts.Interval = "60"
		}
		if opts.Rain == "" {
			opts.Rain = RainDiscrete
		}
	}

	if err := opts.normalize(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// normalize fills defaults and validates the options.
func (o *Options) normalize() error {
	if o.System == 0 {
		o.System = units.US
	}
	if !o.System.Valid() {
		return &ConfigError{Err: fmt.Errorf("unknown unit system %d", int(o.System))}
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Interval == "" {
		o.Interval = IntervalDerive
	}
	if o.Rain == "" {
		o.Rain = RainCumulative
	}
	if o.Tranche <= 0 {
		o.Tranche = config.DefaultTranche
	}
	if o.Decimal == "" {
		o.Decimal = "."
	}
	if o.DateTimeFormat == "" {
		o.DateTimeFormat = defaultDateTimeFormat
	}
	if o.WindDirection == [2]float64{} {
		o.WindDirection = [2]float64{0, 360}
	}
	if o.WindDirection[0] >= o.WindDirection[1] {
		return &ConfigError{Err: fmt.Errorf("wind_direction range %v is empty", o.WindDirection)}
	}
	if o.WindDirection[1]-o.WindDirection[0] > 720 {
		return &ConfigError{Err: fmt.Errorf("wind_direction range %v is wider than two turns", o.WindDirection)}
	}
	switch o.Interval {
	case IntervalDerive:
	case IntervalConf:
		if o.ArchiveInterval <= 0 {
			return &ConfigError{Err: fmt.Errorf("interval conf needs a positive archive_interval")}
		}
	default:
		if n, err := strconv.Atoi(o.Interval); err != nil || n <= 0 {
			return &ConfigError{Err: fmt.Errorf("invalid interval %q", o.Interval)}
		}
	}
	if o.Rain != RainCumulative && o.Rain != RainDiscrete {
		return &ConfigError{Err: fmt.Errorf("invalid rain mode %q", o.Rain)}
	}
	if !o.From.IsZero() && !o.To.IsZero() && o.To.Before(o.From) {
		return &ConfigError{Err: fmt.Errorf("range end %s before start %s", o.To, o.From)}
	}
	return nil
}

// DayRange returns the (from, to] range covering one calendar day in loc.
func DayRange(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	d := day.In(loc)
	return weather.DayBounds(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc))
}
