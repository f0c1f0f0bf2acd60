package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

// Source names understood by the import configuration.
const (
	SourceCSV       = "csv"
	SourceWU        = "wu"
	SourceCumulus   = "cumulus"
	SourceOpenMeteo = "openmeteo"
)

// Defaults applied to every source section.
const (
	DefaultTranche         = 250
	DefaultArchiveInterval = 5
)

var validate = validator.New()

// ImportConfig is the YAML import configuration.
type ImportConfig struct {
	Station weather.Station `yaml:"station"`

	// TargetUnitSystem is the unit system records are stored in.
	TargetUnitSystem string `yaml:"target_unit_system"`

	// Timezone is the IANA zone of source timestamps without an offset; UTC when empty.
	Timezone string `yaml:"timezone"`

	// ArchiveInterval (minutes) is used by sources with interval "conf".
	ArchiveInterval int `yaml:"archive_interval" validate:"gte=0"`

	QC QCConfig `yaml:"qc"`

	// Source is the default source for imports that do not name one.
	Source string `yaml:"source" validate:"omitempty,oneof=csv wu cumulus openmeteo"`

	CSV       *CSVConfig       `yaml:"csv" validate:"omitempty"`
	WU        *WUConfig        `yaml:"wu" validate:"omitempty"`
	Cumulus   *CumulusConfig   `yaml:"cumulus" validate:"omitempty"`
	OpenMeteo *OpenMeteoConfig `yaml:"openmeteo" validate:"omitempty"`
}

// QCConfig holds quality-control bounds keyed by observation type.
type QCConfig struct {
	MinMax map[string]Bounds `yaml:"min_max"`
}

// Bounds is an inclusive [Min, Max] range expressed in Unit. In YAML it is
// written as a list: [min, max, unit].
type Bounds struct {
	Min  float64
	Max  float64
	Unit units.Unit
}

func (b *Bounds) UnmarshalYAML(node *yaml.Node) error {
	var parts []string
	if err := node.Decode(&parts); err != nil {
		return fmt.Errorf("line %d: min_max entry must be a list: %w", node.Line, err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("line %d: min_max entry needs [min, max, unit], got %d items", node.Line, len(parts))
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return fmt.Errorf("line %d: bad minimum: %w", node.Line, err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return fmt.Errorf("line %d: bad maximum: %w", node.Line, err)
	}
	if lo > hi {
		return fmt.Errorf("line %d: minimum %v above maximum %v", node.Line, lo, hi)
	}
	u := units.Unit(strings.TrimSpace(parts[2]))
	if !units.Known(u) {
		return fmt.Errorf("line %d: %w: %q", node.Line, units.ErrUnknownUnit, u)
	}
	b.Min, b.Max, b.Unit = lo, hi, u
	return nil
}

// Options are the processing options every source section carries.
type Options struct {
	// Interval is "derive", "conf" or a whole number of minutes.
	Interval string `yaml:"interval"`
	// Rain is "cumulative" or "discrete".
	Rain string `yaml:"rain" validate:"omitempty,oneof=cumulative discrete"`
	// WindDirection is the accepted [lo, hi] range of source wind directions.
	WindDirection []float64 `yaml:"wind_direction" validate:"omitempty,len=2"`

	QC                *bool `yaml:"qc"`
	CalcMissing       *bool `yaml:"calc_missing"`
	IgnoreInvalidData *bool `yaml:"ignore_invalid_data"`
	UVSensor          *bool `yaml:"uv_sensor"`
	SolarSensor       *bool `yaml:"solar_sensor"`

	Tranche int `yaml:"tranche" validate:"gte=0"`
}

// CSVConfig configures a delimited text file with a header row.
type CSVConfig struct {
	Options `yaml:",inline"`

	// File is a local path or a file://, http(s)://, s3:// or gs:// URI.
	File      string `yaml:"file" validate:"required"`
	Delimiter string `yaml:"delimiter"`
	Decimal   string `yaml:"decimal"`
	// DateTimeFormat is a strftime-style layout, e.g. "%Y-%m-%d %H:%M:%S".
	DateTimeFormat string `yaml:"raw_datetime_format"`

	FieldMap weather.FieldMap `yaml:"field_map" validate:"required"`
}

// WUConfig configures the Weather Underground PWS history API.
type WUConfig struct {
	Options `yaml:",inline"`

	StationID string `yaml:"station_id" validate:"required"`
	// APIKey falls back to WU_API_KEY when empty.
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// CumulusConfig configures Cumulus monthly log files.
type CumulusConfig struct {
	Options `yaml:",inline"`

	// Directory holds the MMMyylog.txt files; any URI scheme fetch understands works.
	Directory string       `yaml:"directory" validate:"required"`
	Separator string       `yaml:"separator"`
	Decimal   string       `yaml:"decimal"`
	Units     CumulusUnits `yaml:"units"`
}

// CumulusUnits are the units the Cumulus station logged in.
type CumulusUnits struct {
	Temperature units.Unit `yaml:"temperature"`
	Pressure    units.Unit `yaml:"pressure"`
	Rain        units.Unit `yaml:"rain"`
	Speed       units.Unit `yaml:"speed"`
}

// OpenMeteoConfig configures the Open-Meteo historical weather API.
type OpenMeteoConfig struct {
	Options `yaml:",inline"`

	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	// ChunkDays caps the days requested per call.
	ChunkDays int `yaml:"chunk_days" validate:"gte=0,lte=366"`
}

// ErrNoSource is returned when the import configuration has no source section.
var ErrNoSource = errors.New("no import source configured")

// LoadImport reads and validates the YAML import configuration at path.
func LoadImport(path string) (*ImportConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import config: %w", err)
	}
	return ParseImport(data)
}

// ParseImport parses and validates a YAML import configuration.
func ParseImport(data []byte) (*ImportConfig, error) {
	cfg := &ImportConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse import config: %w", err)
	}
	if cfg.TargetUnitSystem == "" {
		cfg.TargetUnitSystem = units.US.String()
	}
	if _, err := units.ParseSystem(cfg.TargetUnitSystem); err != nil {
		return nil, fmt.Errorf("import config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("import config: %w", err)
	}
	if cfg.ArchiveInterval == 0 {
		cfg.ArchiveInterval = DefaultArchiveInterval
	}
	if cfg.Station.AltitudeUnit != "" {
		if _, err := cfg.Station.AltitudeMeters(); err != nil {
			return nil, fmt.Errorf("import config: station altitude: %w", err)
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("import config: %w", err)
	}
	for _, name := range []string{SourceCSV, SourceWU, SourceCumulus, SourceOpenMeteo} {
		if opts, ok := cfg.SourceOptions(name); ok {
			if err := checkInterval(opts.Interval); err != nil {
				return nil, fmt.Errorf("import config: %s: %w", name, err)
			}
		}
	}
	if cfg.Source != "" {
		if _, ok := cfg.SourceOptions(cfg.Source); !ok {
			return nil, fmt.Errorf("import config: source %q has no section", cfg.Source)
		}
	}
	return cfg, nil
}

// DefaultSource returns the configured default source, or the only configured
// section when there is exactly one.
func (c *ImportConfig) DefaultSource() (string, error) {
	if c.Source != "" {
		return c.Source, nil
	}
	var found []string
	for _, name := range []string{SourceCSV, SourceWU, SourceCumulus, SourceOpenMeteo} {
		if _, ok := c.SourceOptions(name); ok {
			found = append(found, name)
		}
	}
	switch len(found) {
	case 0:
		return "", ErrNoSource
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("several import sources configured (%s); choose one", strings.Join(found, ", "))
	}
}

// SourceOptions returns the common options of a source section and whether the
// section exists.
func (c *ImportConfig) SourceOptions(name string) (Options, bool) {
	switch name {
	case SourceCSV:
		if c.CSV != nil {
			return c.CSV.Options, true
		}
	case SourceWU:
		if c.WU != nil {
			return c.WU.Options, true
		}
	case SourceCumulus:
		if c.Cumulus != nil {
			return c.Cumulus.Options, true
		}
	case SourceOpenMeteo:
		if c.OpenMeteo != nil {
			return c.OpenMeteo.Options, true
		}
	}
	return Options{}, false
}

// UnitSystem returns the parsed target unit system.
func (c *ImportConfig) UnitSystem() units.System {
	s, err := units.ParseSystem(c.TargetUnitSystem)
	if err != nil {
		return units.US
	}
	return s
}

// Location returns the time zone of source timestamps.
func (c *ImportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

func checkInterval(v string) error {
	switch v {
	case "", "derive", "conf":
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("interval must be derive, conf or a positive number of minutes, got %q", v)
	}
	return nil
}

// BoolOr returns *b, or def when b is unset.
func BoolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
