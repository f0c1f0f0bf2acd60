package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

const wuBaseURL = "https://api.weather.com/v2/pws/history/all"

// wuFieldMap maps the metric WU history fields onto archive fields.
var wuFieldMap = weather.FieldMap{
	"dateTime":    {SourceField: "epoch", Unit: units.UnixEpoch},
	"outTemp":     {SourceField: "tempAvg", Unit: units.DegreeC},
	"dewpoint":    {SourceField: "dewptAvg", Unit: units.DegreeC},
	"heatindex":   {SourceField: "heatindexAvg", Unit: units.DegreeC},
	"windchill":   {SourceField: "windchillAvg", Unit: units.DegreeC},
	"barometer":   {SourceField: "pressureMax", Unit: units.HPa},
	"outHumidity": {SourceField: "humidityAvg", Unit: units.Percent},
	"windSpeed":   {SourceField: "windspeedAvg", Unit: units.KmPerHour},
	"windGust":    {SourceField: "windgustHigh", Unit: units.KmPerHour},
	"windDir":     {SourceField: "winddirAvg", Unit: units.DegreeCompass},
	"rain":        {SourceField: "precipTotal", Unit: units.Mm, Cumulative: true},
	"rainRate":    {SourceField: "precipRate", Unit: units.MmPerHour},
	"radiation":   {SourceField: "solarRadiationHigh", Unit: units.WattPerMeterSquared},
	"UV":          {SourceField: "uvHigh", Unit: units.UVIndex},
}

// WUSource imports daily history from the Weather Underground PWS API.
type WUSource struct {
	name      string
	stationID string
	apiKey    string
	baseURL   string
	location  *time.Location
	now       func() time.Time
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewWUSource(client *http.Client, stationID, apiKey string, loc *time.Location) *WUSource {
	if loc == nil {
		loc = time.UTC
	}
	return &WUSource{
		name:      "wu",
		stationID: stationID,
		apiKey:    apiKey,
		baseURL:   wuBaseURL,
		location:  loc,
		now:       time.Now,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("wu"),
	}
}

func (s *WUSource) Name() string {
	return s.name
}

func (s *WUSource) FieldMap() weather.FieldMap {
	return wuFieldMap
}

// Periods returns one period per station-local day overlapping (from, to].
// With no range it covers today.
func (s *WUSource) Periods(_ context.Context, from, to time.Time) ([]weather.Period, error) {
	return dailyPeriods(from, to, s.now(), s.location), nil
}

func (s *WUSource) Fetch(ctx context.Context, p weather.Period) ([]weather.RawRecord, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("wu api key is not configured")
	}
	if s.stationID == "" {
		return nil, fmt.Errorf("wu station id is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("stationId", s.stationID)
		values.Set("format", "json")
		values.Set("units", "m")
		values.Set("numericPrecision", "decimal")
		values.Set("date", p.Start.In(s.location).Format("20060102"))
		values.Set("apiKey", s.apiKey)

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

	var payload wuHistory
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode wu history: %w", err)
	}

	out := make([]weather.RawRecord, 0, len(payload.Observations))
	for _, o := range payload.Observations {
		out = append(out, o.raw())
	}
	return out, nil
}

type wuHistory struct {
	Observations []wuObservation `json:"observations"`
}

type wuObservation struct {
	StationID          string   `json:"stationID"`
	Epoch              int64    `json:"epoch"`
	SolarRadiationHigh *float64 `json:"solarRadiationHigh"`
	UVHigh             *float64 `json:"uvHigh"`
	WindDirAvg         *float64 `json:"winddirAvg"`
	HumidityAvg        *float64 `json:"humidityAvg"`
	Metric             struct {
		TempAvg      *float64 `json:"tempAvg"`
		WindspeedAvg *float64 `json:"windspeedAvg"`
		WindgustHigh *float64 `json:"windgustHigh"`
		DewptAvg     *float64 `json:"dewptAvg"`
		WindchillAvg *float64 `json:"windchillAvg"`
		HeatindexAvg *float64 `json:"heatindexAvg"`
		PressureMax  *float64 `json:"pressureMax"`
		PrecipRate   *float64 `json:"precipRate"`
		PrecipTotal  *float64 `json:"precipTotal"`
	} `json:"metric"`
}

func (o wuObservation) raw() weather.RawRecord {
	return weather.RawRecord{
		"epoch":              strconv.FormatInt(o.Epoch, 10),
		"tempAvg":            formatOptional(o.Metric.TempAvg),
		"dewptAvg":           formatOptional(o.Metric.DewptAvg),
		"heatindexAvg":       formatOptional(o.Metric.HeatindexAvg),
		"windchillAvg":       formatOptional(o.Metric.WindchillAvg),
		"pressureMax":        formatOptional(o.Metric.PressureMax),
		"humidityAvg":        formatOptional(o.HumidityAvg),
		"windspeedAvg":       formatOptional(o.Metric.WindspeedAvg),
		"windgustHigh":       formatOptional(o.Metric.WindgustHigh),
		"winddirAvg":         formatOptional(o.WindDirAvg),
		"precipTotal":        formatOptional(o.Metric.PrecipTotal),
		"precipRate":         formatOptional(o.Metric.PrecipRate),
		"solarRadiationHigh": formatOptional(o.SolarRadiationHigh),
		"uvHigh":             formatOptional(o.UVHigh),
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
