package dataset

import (
	"time"

	"github.com/rmaia/inmet-station/internal/entities"
)

// Summary aggregates the headline metrics the dashboard shows.
type Summary struct {
	Rows        int        `json:"rows"`
	Station     string     `json:"station"`
	First       *time.Time `json:"first,omitempty"`
	Last        *time.Time `json:"last,omitempty"`
	MeanTemp    *float64   `json:"mean_temperature,omitempty"`
	MeanHum     *float64   `json:"mean_humidity,omitempty"`
	TotalPrecip *float64   `json:"total_precipitation,omitempty"`
	MeanWind    *float64   `json:"mean_wind_speed,omitempty"`
}

// Summarize computes the summary over a set of observations. Averages
// only count records carrying the measurement; total precipitation is
// nil when no record carries one.
func Summarize(observations []entities.Observation) Summary {
	s := Summary{Rows: len(observations)}
	if len(observations) == 0 {
		return s
	}

	s.Station = observations[0].Station
	first := observations[0].Timestamp
	last := observations[0].Timestamp

	var tempSum, humSum, precipSum, windSum float64
	var tempN, humN, precipN, windN int
	for _, o := range observations {
		if o.Timestamp.Before(first) {
			first = o.Timestamp
		}
		if o.Timestamp.After(last) {
			last = o.Timestamp
		}
		if o.TempMean != nil {
			tempSum += *o.TempMean
			tempN++
		}
		if o.Humidity != nil {
			humSum += *o.Humidity
			humN++
		}
		if o.Precip != nil {
			precipSum += *o.Precip
			precipN++
		}
		if o.WindSpd != nil {
			windSum += *o.WindSpd
			windN++
		}
	}

	s.First = &first
	s.Last = &last
	if tempN > 0 {
		s.MeanTemp = entities.Float(tempSum / float64(tempN))
	}
	if humN > 0 {
		s.MeanHum = entities.Float(humSum / float64(humN))
	}
	if precipN > 0 {
		s.TotalPrecip = entities.Float(precipSum)
	}
	if windN > 0 {
		s.MeanWind = entities.Float(windSum / float64(windN))
	}
	return s
}
