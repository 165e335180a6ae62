package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rmaia/inmet-station/internal/entities"
)

const testStation = "SAO LUIZ DO PARAITINGA"

func newTestRepository(t *testing.T) *SQLiteObservationRepository {
	t.Helper()
	repo, err := NewSQLiteObservationRepository(filepath.Join(t.TempDir(), "observations.db"))
	if err != nil {
		t.Fatalf("failed to open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleObservations(base time.Time, n int) []entities.Observation {
	observations := make([]entities.Observation, 0, n)
	for i := 0; i < n; i++ {
		observations = append(observations, entities.Observation{
			Station:     testStation,
			StationCode: "A740",
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			TempMean:    entities.Float(20 + float64(i)),
			Humidity:    entities.Float(80),
		})
	}
	return observations
}

func TestSaveAndGetObservations(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := repo.SaveObservations(sampleObservations(base, 5)); err != nil {
		t.Fatalf("SaveObservations failed: %v", err)
	}

	got, err := repo.GetObservations(testStation, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetObservations failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 observations, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Timestamp.Before(got[i].Timestamp) {
			t.Error("expected observations sorted ascending by timestamp")
		}
	}
	if got[0].TempMean == nil || *got[0].TempMean != 20 {
		t.Errorf("expected first mean temperature 20, got %v", got[0].TempMean)
	}
	if got[0].Pressure != nil {
		t.Errorf("expected missing pressure to stay nil, got %v", *got[0].Pressure)
	}

	// Range query is inclusive.
	ranged, err := repo.GetObservations(testStation, base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("ranged GetObservations failed: %v", err)
	}
	if len(ranged) != 3 {
		t.Fatalf("expected 3 observations in range, got %d", len(ranged))
	}
}

func TestSaveObservationsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	observations := sampleObservations(base, 4)

	if err := repo.SaveObservations(observations); err != nil {
		t.Fatalf("first SaveObservations failed: %v", err)
	}
	// Same records again, one with an updated measurement.
	observations[0].TempMean = entities.Float(99)
	if err := repo.SaveObservations(observations); err != nil {
		t.Fatalf("second SaveObservations failed: %v", err)
	}

	got, err := repo.GetObservations(testStation, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetObservations failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected re-saving to keep 4 rows, got %d", len(got))
	}
	if got[0].TempMean == nil || *got[0].TempMean != 99 {
		t.Errorf("expected upsert to keep the newest measurement, got %v", got[0].TempMean)
	}
}

func TestGetLatest(t *testing.T) {
	repo := newTestRepository(t)

	latest, err := repo.GetLatest(testStation)
	if err != nil {
		t.Fatalf("GetLatest on empty store failed: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil latest on empty store, got %+v", latest)
	}

	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.SaveObservations(sampleObservations(base, 3)); err != nil {
		t.Fatalf("SaveObservations failed: %v", err)
	}

	latest, err = repo.GetLatest(testStation)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a latest observation")
	}
	if !latest.Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("expected latest at %v, got %v", base.Add(2*time.Hour), latest.Timestamp)
	}
}

func TestGetStationsAndLastUpdate(t *testing.T) {
	repo := newTestRepository(t)

	lastUpdate, err := repo.GetLastUpdateTime()
	if err != nil {
		t.Fatalf("GetLastUpdateTime on empty store failed: %v", err)
	}
	if !lastUpdate.IsZero() {
		t.Errorf("expected zero time on empty store, got %v", lastUpdate)
	}

	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.SaveObservations(sampleObservations(base, 2)); err != nil {
		t.Fatalf("SaveObservations failed: %v", err)
	}

	stations, err := repo.GetStations()
	if err != nil {
		t.Fatalf("GetStations failed: %v", err)
	}
	if len(stations) != 1 || stations[0] != testStation {
		t.Errorf("expected [%q], got %v", testStation, stations)
	}

	lastUpdate, err = repo.GetLastUpdateTime()
	if err != nil {
		t.Fatalf("GetLastUpdateTime failed: %v", err)
	}
	if !lastUpdate.Equal(base.Add(time.Hour)) {
		t.Errorf("expected last update %v, got %v", base.Add(time.Hour), lastUpdate)
	}
}
