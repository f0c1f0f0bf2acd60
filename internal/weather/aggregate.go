package weather

import (
	"math"
	"time"

	"github.com/i474232898/wxarchive/internal/units"
)

// directionSpeed pairs direction observations with the speed used to weight them.
var directionSpeed = map[string]string{
	"windDir":     "windSpeed",
	"windGustDir": "windGust",
}

// DayBounds returns the archive span of the day containing date: records with
// start < dateTime <= end belong to it.
func DayBounds(date time.Time) (start, end time.Time) {
	start = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}

// SummarizeDay accumulates min/max/sum/avg per observation type for the day
// containing date. Directions are vector averaged, weighted by the matching speed.
// Records must all share one unit system.
func SummarizeDay(date time.Time, records []Record) DaySummary {
	start, end := DayBounds(date)

	summary := DaySummary{
		Date:  start,
		Stats: make(map[string]ObsStats),
	}

	type vec struct{ x, y float64 }
	vectors := make(map[string]vec)

	for _, r := range records {
		if !r.DateTime.After(start) || r.DateTime.After(end) {
			continue
		}
		summary.Records++
		summary.UsUnits = r.UsUnits

		for obs, v := range r.Values {
			st, seen := summary.Stats[obs]
			if !seen || v < st.Min {
				st.Min = v
				st.MinTime = r.DateTime
			}
			if !seen || v > st.Max {
				st.Max = v
				st.MaxTime = r.DateTime
			}
			st.Sum += v
			st.Count++
			summary.Stats[obs] = st

			if speedObs, ok := directionSpeed[obs]; ok {
				if speed, ok := r.Values[speedObs]; ok && speed > 0 {
					rad := v * math.Pi / 180
					acc := vectors[obs]
					acc.x += speed * math.Sin(rad)
					acc.y += speed * math.Cos(rad)
					vectors[obs] = acc
				}
			}
		}
	}

	for obs, st := range summary.Stats {
		if st.Count > 0 {
			st.Avg = st.Sum / float64(st.Count)
		}
		if _, isDir := directionSpeed[obs]; isDir {
			st.Sum = 0
			st.Avg = 0
			if acc, ok := vectors[obs]; ok && (acc.x != 0 || acc.y != 0) {
				deg := math.Atan2(acc.x, acc.y) * 180 / math.Pi
				if deg < 0 {
					deg += 360
				}
				st.Avg = deg
			}
		}
		summary.Stats[obs] = st
	}

	if summary.Records == 0 {
		summary.UsUnits = units.US
	}
	return summary
}
