package units

var obsGroups = map[string]Group{
	"dateTime": GroupTime,
	"interval": GroupInterval,

	"outTemp":    GroupTemperature,
	"inTemp":     GroupTemperature,
	"dewpoint":   GroupTemperature,
	"inDewpoint": GroupTemperature,
	"windchill":  GroupTemperature,
	"heatindex":  GroupTemperature,
	"appTemp":    GroupTemperature,
	"humidex":    GroupTemperature,
	"extraTemp1": GroupTemperature,
	"extraTemp2": GroupTemperature,
	"extraTemp3": GroupTemperature,
	"soilTemp1":  GroupTemperature,
	"soilTemp2":  GroupTemperature,
	"soilTemp3":  GroupTemperature,
	"soilTemp4":  GroupTemperature,
	"leafTemp1":  GroupTemperature,
	"leafTemp2":  GroupTemperature,

	"barometer": GroupPressure,
	"pressure":  GroupPressure,
	"altimeter": GroupPressure,

	"windSpeed": GroupSpeed,
	"windGust":  GroupSpeed,

	"windDir":     GroupDirection,
	"windGustDir": GroupDirection,

	"rain": GroupRain,
	"ET":   GroupRain,
	"hail": GroupRain,

	"rainRate": GroupRainRate,
	"hailRate": GroupRainRate,

	"outHumidity": GroupPercent,
	"inHumidity":  GroupPercent,
	"extraHumid1": GroupPercent,
	"extraHumid2": GroupPercent,

	"radiation":   GroupRadiation,
	"maxSolarRad": GroupRadiation,
	"UV":          GroupUV,

	"cloudbase": GroupAltitude,
	"altitude":  GroupAltitude,
	"windrun":   GroupDistance,

	"consBatteryVoltage": GroupVolt,
	"heatingVoltage":     GroupVolt,
	"supplyVoltage":      GroupVolt,
	"referenceVoltage":   GroupVolt,
}

// GroupOf returns the unit group of an archive observation type. Types the
// table does not know are treated as plain counts and never converted.
func GroupOf(obsType string) Group {
	if g, ok := obsGroups[obsType]; ok {
		return g
	}
	return GroupCount
}
