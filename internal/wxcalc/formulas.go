package wxcalc

import "math"

// All formulas work in degree_C, percent, meter_per_second, mbar and meter.

// DewpointC returns the dew point for temperature tC and relative humidity rh.
// It is undefined for rh <= 0.
func DewpointC(tC, rh float64) (float64, bool) {
	if rh <= 0 {
		return 0, false
	}
	x := math.Log(rh/100) + 17.27*tC/(237.7+tC)
	return 237.7 * x / (17.27 - x), true
}

// WindchillC uses the 2001 NWS formula. It only applies below 50°F with wind
// above 3 mph; otherwise the air temperature is returned.
func WindchillC(tC, windMS float64) float64 {
	tF := tC*9/5 + 32
	vMph := windMS / 0.44704
	if tF >= 50 || vMph <= 3 {
		return tC
	}
	v := math.Pow(vMph, 0.16)
	wcF := 35.74 + 0.6215*tF - 35.75*v + 0.4275*tF*v
	return (wcF - 32) * 5 / 9
}

// HeatindexC follows the NWS Rothfusz regression with its low/high humidity
// adjustments and the simple formula for mild conditions.
func HeatindexC(tC, rh float64) float64 {
	t := tC*9/5 + 32
	if t < 40 {
		return tC
	}
	hi := 0.5 * (t + 61 + (t-68)*1.2 + rh*0.094)
	if (hi+t)/2 >= 80 {
		hi = -42.379 + 2.04901523*t + 10.14333127*rh -
			0.22475541*t*rh - 0.00683783*t*t - 0.05481717*rh*rh +
			0.00122874*t*t*rh + 0.00085282*t*rh*rh - 0.00000199*t*t*rh*rh
		switch {
		case rh < 13 && t >= 80 && t <= 112:
			hi -= ((13 - rh) / 4) * math.Sqrt((17-math.Abs(t-95))/17)
		case rh > 85 && t >= 80 && t <= 87:
			hi += ((rh - 85) / 10) * ((87 - t) / 5)
		}
	}
	return (hi - 32) * 5 / 9
}

// HumidexC is the Canadian humidex. It never drops below the air temperature.
func HumidexC(tC, rh float64) (float64, bool) {
	dp, ok := DewpointC(tC, rh)
	if !ok {
		return 0, false
	}
	e := 6.11 * math.Exp(5417.7530*(1/273.16-1/(dp+273.15)))
	h := tC + 0.5555*(e-10)
	return math.Max(h, tC), true
}

// ApparentTempC is the Australian Bureau of Meteorology apparent temperature.
func ApparentTempC(tC, rh, windMS float64) float64 {
	e := rh / 100 * 6.105 * math.Exp(17.27*tC/(237.7+tC))
	return tC + 0.33*e - 0.70*windMS - 4.00
}

// CloudbaseM estimates the cumulus cloud base above sea level from the
// temperature/dew point spread (2.5°C per 1000 ft).
func CloudbaseM(tC, rh, altitudeM float64) (float64, bool) {
	dp, ok := DewpointC(tC, rh)
	if !ok {
		return 0, false
	}
	feet := (tC - dp) / 2.5 * 1000
	return altitudeM + feet*0.3048, true
}

const (
	altimeterN = 0.190284
	lapseRate  = 0.0065  // K per meter
	baroExp    = 5.25588 // g·M/(R·L)
)

// AltimeterMbar converts station pressure to an altimeter setting (NOAA ASOS).
func AltimeterMbar(stationMbar, altitudeM float64) float64 {
	k := math.Pow(1013.25, altimeterN) * lapseRate / 288
	p := stationMbar - 0.3
	return p * math.Pow(1+k*altitudeM/math.Pow(p, altimeterN), 1/altimeterN)
}

// SealevelMbar reduces station pressure to sea level using the standard lapse rate.
func SealevelMbar(stationMbar, altitudeM, tC float64) float64 {
	return stationMbar * math.Pow(reductionBase(altitudeM, tC), -baroExp)
}

// StationMbar is the inverse of SealevelMbar.
func StationMbar(sealevelMbar, altitudeM, tC float64) float64 {
	return sealevelMbar * math.Pow(reductionBase(altitudeM, tC), baroExp)
}

func reductionBase(altitudeM, tC float64) float64 {
	lh := lapseRate * altitudeM
	return 1 - lh/(tC+lh+273.15)
}

// WindrunKm is the distance the wind travels at windMS during interval minutes.
func WindrunKm(windMS float64, intervalMin int) float64 {
	return windMS * float64(intervalMin) * 60 / 1000
}
