// Package wxcalc derives secondary weather observations (dew point, wind
// chill, heat index, sea-level pressure, ...) that a source did not supply.
package wxcalc

import (
	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

// Calculator fills missing derived observations for one station.
type Calculator struct {
	altitudeM float64
}

// New returns a Calculator for station.
func New(station weather.Station) (*Calculator, error) {
	alt, err := station.AltitudeMeters()
	if err != nil {
		return nil, err
	}
	return &Calculator{altitudeM: alt}, nil
}

// FillMissing computes derived observations absent from rec and stores them in
// rec's unit system. Values already present are never overwritten. It returns
// the observation types it added.
func (c *Calculator) FillMissing(rec weather.Record) ([]string, error) {
	in := func(obs string) (float64, bool) {
		v, ok := rec.Get(obs)
		if !ok {
			return 0, false
		}
		mv, err := units.ConvertValue(obs, v, rec.UsUnits, units.MetricWX)
		if err != nil {
			return 0, false
		}
		return mv, true
	}

	var added []string
	var setErr error
	out := func(obs string, metricValue float64) {
		if _, present := rec.Get(obs); present || setErr != nil {
			return
		}
		v, err := units.ConvertValue(obs, metricValue, units.MetricWX, rec.UsUnits)
		if err != nil {
			setErr = err
			return
		}
		rec.Set(obs, v)
		added = append(added, obs)
	}

	t, haveT := in("outTemp")
	rh, haveRH := in("outHumidity")
	ws, haveWS := in("windSpeed")

	if haveT && haveRH {
		if dp, ok := DewpointC(t, rh); ok {
			out("dewpoint", dp)
		}
		out("heatindex", HeatindexC(t, rh))
		if h, ok := HumidexC(t, rh); ok {
			out("humidex", h)
		}
		if cb, ok := CloudbaseM(t, rh, c.altitudeM); ok {
			out("cloudbase", cb)
		}
	}
	if haveT && haveWS {
		out("windchill", WindchillC(t, ws))
	}
	if haveT && haveRH && haveWS {
		out("appTemp", ApparentTempC(t, rh, ws))
	}
	if inT, ok := in("inTemp"); ok {
		if inRH, ok := in("inHumidity"); ok {
			if dp, ok := DewpointC(inT, inRH); ok {
				out("inDewpoint", dp)
			}
		}
	}
	if haveWS && rec.Interval > 0 {
		out("windrun", WindrunKm(ws, rec.Interval))
	}

	reductionT := 15.0
	if haveT {
		reductionT = t
	}
	if p, ok := in("pressure"); ok {
		out("barometer", SealevelMbar(p, c.altitudeM, reductionT))
	} else if b, ok := in("barometer"); ok {
		out("pressure", StationMbar(b, c.altitudeM, reductionT))
	}
	if p, ok := in("pressure"); ok {
		out("altimeter", AltimeterMbar(p, c.altitudeM))
	}

	return added, setErr
}
