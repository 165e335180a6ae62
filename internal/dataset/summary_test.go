package dataset

import (
	"testing"
	"time"

	"github.com/rmaia/inmet-station/internal/entities"
)

func TestSummarize(t *testing.T) {
	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	observations := []entities.Observation{
		{
			Station:   testStation,
			Timestamp: base,
			TempMean:  entities.Float(20),
			Humidity:  entities.Float(80),
			Precip:    entities.Float(1.5),
			WindSpd:   entities.Float(2),
		},
		{
			Station:   testStation,
			Timestamp: base.Add(time.Hour),
			TempMean:  entities.Float(22),
			Precip:    entities.Float(0.5),
			// humidity and wind missing; they must not drag the average
		},
	}

	s := Summarize(observations)
	if s.Rows != 2 {
		t.Errorf("expected 2 rows, got %d", s.Rows)
	}
	if s.Station != testStation {
		t.Errorf("expected station %q, got %q", testStation, s.Station)
	}
	if s.MeanTemp == nil || *s.MeanTemp != 21 {
		t.Errorf("expected mean temperature 21, got %v", s.MeanTemp)
	}
	if s.MeanHum == nil || *s.MeanHum != 80 {
		t.Errorf("expected mean humidity 80 over the single record, got %v", s.MeanHum)
	}
	if s.TotalPrecip == nil || *s.TotalPrecip != 2 {
		t.Errorf("expected total precipitation 2, got %v", s.TotalPrecip)
	}
	if s.First == nil || !s.First.Equal(base) {
		t.Errorf("expected first %v, got %v", base, s.First)
	}
	if s.Last == nil || !s.Last.Equal(base.Add(time.Hour)) {
		t.Errorf("expected last %v, got %v", base.Add(time.Hour), s.Last)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Rows != 0 {
		t.Errorf("expected 0 rows, got %d", s.Rows)
	}
	if s.MeanTemp != nil || s.TotalPrecip != nil || s.First != nil {
		t.Error("expected empty summary to carry no metrics")
	}
}
