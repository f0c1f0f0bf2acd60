package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/wxarchive/internal/config"
	"github.com/i474232898/wxarchive/internal/fetch"
	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

// cumulusColumns names the columns of a Cumulus monthly log in file order.
var cumulusColumns = []string{
	"date", "time", "cur_out_temp", "cur_out_hum", "cur_dewpoint",
	"avg_wind_speed", "gust_wind_speed", "avg_wind_bearing", "cur_rain_rate",
	"day_rain", "cur_slp", "rain_counter", "cur_in_temp", "cur_in_hum",
	"latest_wind_gust", "cur_windchill", "cur_heatindex", "cur_uv",
	"cur_solar", "cur_et", "annual_et", "cur_app_temp", "cur_tmax_solar",
	"day_sunshine_hours", "cur_wind_bearing", "day_rain_rg11", "midnight_rain",
}

const cumulusDateTime = "datetime"

var defaultCumulusUnits = config.CumulusUnits{
	Temperature: units.DegreeC,
	Pressure:    units.HPa,
	Rain:        units.Mm,
	Speed:       units.KmPerHour,
}

// CumulusSource reads Cumulus MMMyylog.txt monthly log files.
type CumulusSource struct {
	name      string
	directory string
	separator rune
	units     config.CumulusUnits
	location  *time.Location
	opener    Opener
	now       func() time.Time
}

func NewCumulusSource(opener Opener, directory, separator string, u config.CumulusUnits, loc *time.Location) (*CumulusSource, error) {
	if directory == "" {
		return nil, errors.New("cumulus directory is not configured")
	}
	sep := ','
	if separator != "" {
		if len(separator) != 1 {
			return nil, fmt.Errorf("cumulus separator must be a single character, got %q", separator)
		}
		sep = rune(separator[0])
	}
	if u.Temperature == "" {
		u.Temperature = defaultCumulusUnits.Temperature
	}
	if u.Pressure == "" {
		u.Pressure = defaultCumulusUnits.Pressure
	}
	if u.Rain == "" {
		u.Rain = defaultCumulusUnits.Rain
	}
	if u.Speed == "" {
		u.Speed = defaultCumulusUnits.Speed
	}
	if loc == nil {
		loc = time.UTC
	}
	if opener == nil {
		opener = &fetch.Opener{}
	}
	return &CumulusSource{
		name:      "cumulus",
		directory: directory,
		separator: sep,
		units:     u,
		location:  loc,
		opener:    opener,
		now:       time.Now,
	}, nil
}

func (s *CumulusSource) Name() string {
	return s.name
}

func (s *CumulusSource) FieldMap() weather.FieldMap {
	rate := units.MmPerHour
	switch s.units.Rain {
	case units.Inch:
		rate = units.InchPerHour
	case units.Cm:
		rate = units.CmPerHour
	}
	return weather.FieldMap{
		"dateTime":    {SourceField: cumulusDateTime, Unit: units.UnixEpoch},
		"outTemp":     {SourceField: "cur_out_temp", Unit: s.units.Temperature},
		"outHumidity": {SourceField: "cur_out_hum", Unit: units.Percent},
		"dewpoint":    {SourceField: "cur_dewpoint", Unit: s.units.Temperature},
		"windSpeed":   {SourceField: "avg_wind_speed", Unit: s.units.Speed},
		"windGust":    {SourceField: "gust_wind_speed", Unit: s.units.Speed},
		"windDir":     {SourceField: "avg_wind_bearing", Unit: units.DegreeCompass},
		"rainRate":    {SourceField: "cur_rain_rate", Unit: rate},
		"rain":        {SourceField: "day_rain", Unit: s.units.Rain, Cumulative: true},
		"barometer":   {SourceField: "cur_slp", Unit: s.units.Pressure},
		"inTemp":      {SourceField: "cur_in_temp", Unit: s.units.Temperature},
		"inHumidity":  {SourceField: "cur_in_hum", Unit: units.Percent},
		"windchill":   {SourceField: "cur_windchill", Unit: s.units.Temperature},
		"heatindex":   {SourceField: "cur_heatindex", Unit: s.units.Temperature},
		"UV":          {SourceField: "cur_uv", Unit: units.UVIndex},
		"radiation":   {SourceField: "cur_solar", Unit: units.WattPerMeterSquared},
		"appTemp":     {SourceField: "cur_app_temp", Unit: s.units.Temperature},
	}
}

// Periods returns one period per month overlapping (from, to]. Without a
// start, a local directory is scanned for log files; otherwise only the
// current month is read.
func (s *CumulusSource) Periods(_ context.Context, from, to time.Time) ([]weather.Period, error) {
	if from.IsZero() && s.isLocal() {
		months, err := s.scanMonths()
		if err != nil {
			return nil, err
		}
		if len(months) > 0 {
			from = months[0]
		}
	}
	return monthlyPeriods(from, to, s.now(), s.location), nil
}

func (s *CumulusSource) isLocal() bool {
	u, err := url.Parse(s.directory)
	return err != nil || u.Scheme == "" || len(u.Scheme) == 1 || u.Scheme == "file"
}

// scanMonths lists the months that have a log file in a local directory.
func (s *CumulusSource) scanMonths() ([]time.Time, error) {
	dir := s.directory
	if u, err := url.Parse(dir); err == nil && u.Scheme == "file" {
		dir = u.Path
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list cumulus directory: %w", err)
	}
	var months []time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m, ok := s.parseLogName(e.Name()); ok {
			months = append(months, m)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months, nil
}

func (s *CumulusSource) parseLogName(name string) (time.Time, bool) {
	if len(name) != len("Jan06log.txt") || !strings.EqualFold(name[5:], "log.txt") {
		return time.Time{}, false
	}
	m, err := time.ParseInLocation("Jan06", name[:5], s.location)
	if err != nil {
		return time.Time{}, false
	}
	return m, true
}

func logFileName(month time.Time) string {
	return month.Format("Jan06") + "log.txt"
}

func (s *CumulusSource) Fetch(ctx context.Context, p weather.Period) ([]weather.RawRecord, error) {
	uri := fetch.Join(s.directory, logFileName(p.Start))
	rc, err := s.opener.Open(ctx, uri)
	if errors.Is(err, fetch.ErrNotExist) {
		logrus.WithField("file", uri).Warn("cumulus log file not found; skipping month")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return s.parseLog(rc)
}

// parseLog reads a headerless log and adds a unix epoch datetime column built
// from the date and time columns.
func (s *CumulusSource) parseLog(r io.Reader) ([]weather.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var out []weather.RawRecord
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, string(s.separator))
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected date and time columns", n+1)
		}
		rec := make(weather.RawRecord, len(fields)+1)
		for i, v := range fields {
			if i >= len(cumulusColumns) {
				break
			}
			rec[cumulusColumns[i]] = strings.TrimSpace(v)
		}
		ts, err := s.parseStamp(rec["date"], rec["time"])
		if err != nil {
			// left empty so the mapper reports the line
			rec[cumulusDateTime] = ""
		} else {
			rec[cumulusDateTime] = strconv.FormatInt(ts.Unix(), 10)
		}
		out = append(out, rec)
	}
	return out, nil
}

// parseStamp reads dd/mm/yy and hh:mm; any non-digit separates the parts.
func (s *CumulusSource) parseStamp(date, clock string) (time.Time, error) {
	d := splitDigits(date)
	c := splitDigits(clock)
	if len(d) != 3 || len(c) < 2 {
		return time.Time{}, fmt.Errorf("bad cumulus timestamp %q %q", date, clock)
	}
	year := d[2]
	if year < 100 {
		year += 2000
	}
	t := time.Date(year, time.Month(d[1]), d[0], c[0], c[1], 0, 0, s.location)
	if t.Day() != d[0] || int(t.Month()) != d[1] || t.Hour() != c[0] || t.Minute() != c[1] {
		return time.Time{}, fmt.Errorf("bad cumulus timestamp %q %q", date, clock)
	}
	return t, nil
}

func splitDigits(s string) []int {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}
