package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

const (
	openMeteoBaseURL   = "https://archive-api.open-meteo.com/v1/archive"
	openMeteoChunkDays = 31
)

// openMeteoHourly lists the requested hourly variables and the archive field
// each one fills.
var openMeteoHourly = []struct {
	variable string
	obs      string
	unit     units.Unit
}{
	{"temperature_2m", "outTemp", units.DegreeC},
	{"relative_humidity_2m", "outHumidity", units.Percent},
	{"dew_point_2m", "dewpoint", units.DegreeC},
	{"apparent_temperature", "appTemp", units.DegreeC},
	{"pressure_msl", "barometer", units.HPa},
	{"surface_pressure", "pressure", units.HPa},
	{"precipitation", "rain", units.Mm},
	{"wind_speed_10m", "windSpeed", units.KmPerHour},
	{"wind_direction_10m", "windDir", units.DegreeCompass},
	{"wind_gusts_10m", "windGust", units.KmPerHour},
	{"shortwave_radiation", "radiation", units.WattPerMeterSquared},
}

var errNoCoordinates = errors.New("openmeteo needs station latitude and longitude, or a city and country to geocode")

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, city, country string) (lat, lon float64, err error)
}

// GoogleGeocoder resolves places with the Google geocoding API.
type GoogleGeocoder struct {
	APIKey string
}

// geocoder keeps its key in a package variable.
var geocoderMu sync.Mutex

func (g GoogleGeocoder) Locate(ctx context.Context, city, country string) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	geocoderMu.Lock()
	defer geocoderMu.Unlock()

	geocoder.ApiKey = g.APIKey
	loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %s, %s: %w", city, country, err)
	}
	return loc.Latitude, loc.Longitude, nil
}

// OpenMeteoSource imports hourly reanalysis data from the Open-Meteo archive.
type OpenMeteoSource struct {
	name      string
	baseURL   string
	chunkDays int
	station   weather.Station
	geocoder  Geocoder
	now       func() time.Time
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker

	coordsOnce sync.Once
	lat, lon   float64
	coordsErr  error
}

func NewOpenMeteoSource(client *http.Client, station weather.Station, geo Geocoder) *OpenMeteoSource {
	return &OpenMeteoSource{
		name:      "openmeteo",
		baseURL:   openMeteoBaseURL,
		chunkDays: openMeteoChunkDays,
		station:   station,
		geocoder:  geo,
		now:       time.Now,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (s *OpenMeteoSource) Name() string {
	return s.name
}

func (s *OpenMeteoSource) FieldMap() weather.FieldMap {
	fm := weather.FieldMap{
		"dateTime": {SourceField: "time", Unit: units.UnixEpoch},
	}
	for _, h := range openMeteoHourly {
		fm[h.obs] = weather.FieldSpec{SourceField: h.variable, Unit: h.unit}
	}
	return fm
}

// Periods splits the range into chunks of whole UTC days. With no range it
// covers today.
func (s *OpenMeteoSource) Periods(_ context.Context, from, to time.Time) ([]weather.Period, error) {
	return chunkPeriods(from, to, s.now(), time.UTC, s.chunkDays), nil
}

func (s *OpenMeteoSource) coordinates(ctx context.Context) (float64, float64, error) {
	s.coordsOnce.Do(func() {
		if s.station.Latitude != nil && s.station.Longitude != nil {
			s.lat, s.lon = *s.station.Latitude, *s.station.Longitude
			return
		}
		if s.geocoder == nil || s.station.City == "" {
			s.coordsErr = errNoCoordinates
			return
		}
		s.lat, s.lon, s.coordsErr = s.geocoder.Locate(ctx, s.station.City, s.station.Country)
	})
	return s.lat, s.lon, s.coordsErr
}

func (s *OpenMeteoSource) Fetch(ctx context.Context, p weather.Period) ([]weather.RawRecord, error) {
	lat, lon, err := s.coordinates(ctx)
	if err != nil {
		return nil, err
	}

	variables := make([]string, 0, len(openMeteoHourly))
	for _, h := range openMeteoHourly {
		variables = append(variables, h.variable)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
		values.Set("start_date", p.Start.UTC().Format("2006-01-02"))
		values.Set("end_date", p.End.UTC().AddDate(0, 0, -1).Format("2006-01-02"))
		values.Set("hourly", strings.Join(variables, ","))
		values.Set("timeformat", "unixtime")
		values.Set("timezone", "GMT")
		values.Set("wind_speed_unit", "kmh")

		u := fmt.Sprintf("%s?%s", s.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if errors.Is(err, errNoContent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly map[string]json.RawMessage `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode openmeteo archive: %w", err)
	}

	var times []int64
	if raw, ok := payload.Hourly["time"]; ok {
		if err := json.Unmarshal(raw, &times); err != nil {
			return nil, fmt.Errorf("decode openmeteo time axis: %w", err)
		}
	}

	out := make([]weather.RawRecord, len(times))
	for i, ts := range times {
		out[i] = weather.RawRecord{"time": strconv.FormatInt(ts, 10)}
	}
	for _, h := range openMeteoHourly {
		raw, ok := payload.Hourly[h.variable]
		if !ok {
			continue
		}
		var series []*float64
		if err := json.Unmarshal(raw, &series); err != nil {
			return nil, fmt.Errorf("decode openmeteo %s: %w", h.variable, err)
		}
		if len(series) != len(times) {
			return nil, fmt.Errorf("openmeteo %s has %d values for %d times", h.variable, len(series), len(times))
		}
		for i, v := range series {
			out[i][h.variable] = formatOptional(v)
		}
	}
	return out, nil
}
