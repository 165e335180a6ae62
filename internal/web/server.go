// Package web serves the local dashboard over the combined CSV.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rmaia/inmet-station/internal/analysis"
	"github.com/rmaia/inmet-station/internal/dataset"
	"github.com/rmaia/inmet-station/internal/entities"
)

// Server loads the combined CSV once and serves it read-only. Reload
// swaps the dataset atomically, so a scheduled refresh never disturbs
// in-flight requests.
type Server struct {
	combinedPath string

	mu           sync.RWMutex
	observations []entities.Observation
	loadedAt     time.Time
}

// NewServer creates a dashboard server over the given combined CSV.
func NewServer(combinedPath string) *Server {
	return &Server{combinedPath: combinedPath}
}

// Load reads the combined CSV from disk. The dashboard refuses to
// start without data.
func (s *Server) Load() error {
	observations, err := dataset.Read(s.combinedPath)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		return fmt.Errorf("combined CSV %s holds no observations", s.combinedPath)
	}

	s.mu.Lock()
	s.observations = observations
	s.loadedAt = time.Now()
	s.mu.Unlock()

	slog.Info("dashboard data loaded", "path", s.combinedPath, "rows", len(observations))
	return nil
}

// Reload re-reads the combined CSV, keeping the old dataset on error.
func (s *Server) Reload() {
	if err := s.Load(); err != nil {
		slog.Warn("dashboard reload failed, keeping previous data", "error", err)
	}
}

// Rows returns the number of loaded observations.
func (s *Server) Rows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observations)
}

func (s *Server) snapshot() ([]entities.Observation, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observations, s.loadedAt
}

// Handler builds the dashboard route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/observations", s.handleObservations)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/regression", s.handleRegression)
	mux.HandleFunc("/download", s.handleDownload)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	observations, loadedAt := s.snapshot()
	observations = filterByQuery(observations, r)
	summary := dataset.Summarize(observations)

	data := DashboardData{
		Station:  summary.Station,
		Rows:     len(observations),
		LoadedAt: loadedAt,
		Summary:  summary,
	}

	model, err := analysis.TrainTemperatureModel(observations)
	switch {
	case err == nil:
		data.Regression = model
	case errors.Is(err, analysis.ErrInsufficientData):
		data.RegressionNote = "Not enough mean-temperature records yet to train the model."
	default:
		slog.Error("regression failed", "error", err)
		data.RegressionNote = "Model training failed."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := RenderDashboard(w, &data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// observationJSON is the wire form of one observation row.
type observationJSON struct {
	Station   string   `json:"station"`
	Timestamp string   `json:"timestamp"`
	TempMean  *float64 `json:"temperature_mean"`
	TempMax   *float64 `json:"temperature_max"`
	TempMin   *float64 `json:"temperature_min"`
	Humidity  *float64 `json:"humidity"`
	Pressure  *float64 `json:"pressure"`
	Precip    *float64 `json:"precipitation"`
	WindSpd   *float64 `json:"wind_speed"`
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	observations, _ := s.snapshot()
	observations = filterByQuery(observations, r)

	out := make([]observationJSON, 0, len(observations))
	for _, o := range observations {
		out = append(out, observationJSON{
			Station:   o.Station,
			Timestamp: o.Timestamp.Format(dataset.TimeLayout),
			TempMean:  o.TempMean,
			TempMax:   o.TempMax,
			TempMin:   o.TempMin,
			Humidity:  o.Humidity,
			Pressure:  o.Pressure,
			Precip:    o.Precip,
			WindSpd:   o.WindSpd,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	observations, _ := s.snapshot()
	observations = filterByQuery(observations, r)
	writeJSON(w, dataset.Summarize(observations))
}

func (s *Server) handleRegression(w http.ResponseWriter, r *http.Request) {
	observations, _ := s.snapshot()
	observations = filterByQuery(observations, r)

	model, err := analysis.TrainTemperatureModel(observations)
	if errors.Is(err, analysis.ErrInsufficientData) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		writeJSON(w, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("regression failed", "error", err)
		http.Error(w, "model training failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, model)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	observations, _ := s.snapshot()
	observations = filterByQuery(observations, r)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="observations.csv"`)
	if err := dataset.WriteTo(w, observations); err != nil {
		slog.Error("CSV download failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, loadedAt := s.snapshot()
	writeJSON(w, map[string]any{
		"status":    "ok",
		"rows":      s.Rows(),
		"loaded_at": loadedAt.Format(time.RFC3339),
	})
}

// filterByQuery applies the optional from/to date filter (2006-01-02).
func filterByQuery(observations []entities.Observation, r *http.Request) []entities.Observation {
	from := parseDateParam(r, "from")
	to := parseDateParam(r, "to")
	if from.IsZero() && to.IsZero() {
		return observations
	}
	if !to.IsZero() {
		// Inclusive end date.
		to = to.Add(24*time.Hour - time.Minute)
	}
	return dataset.FilterRange(observations, from, to)
}

func parseDateParam(r *http.Request, name string) time.Time {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
	if err != nil {
		slog.Warn("ignoring bad date parameter", "param", name, "value", v)
		return time.Time{}
	}
	return t
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
