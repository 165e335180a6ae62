// Package dataset implements the combined CSV: the deduplicated, sorted
// concatenation of one station's multi-year observations.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rmaia/inmet-station/internal/entities"
)

// TimeLayout is the timestamp format of the DATA column.
const TimeLayout = "2006-01-02 15:04"

// Columns is the combined CSV header. Measurement columns carry the
// normalized names the original portal headers reduce to.
var Columns = []string{
	"ESTACAO",
	"DATA",
	"TEMPERATURA_MEDIA",
	"TEMPERATURA_MAXIMA",
	"TEMPERATURA_MINIMA",
	"UMIDADE_RELATIVA",
	"PRESSAO_ATMOSFERICA",
	"PRECIPITACAO",
	"VELOCIDADE_VENTO",
}

// Combine drops records without a timestamp, sorts ascending by
// timestamp and removes duplicate (station, timestamp) pairs, keeping
// the first occurrence.
func Combine(observations []entities.Observation) []entities.Observation {
	combined := make([]entities.Observation, 0, len(observations))
	for _, o := range observations {
		if !o.Timestamp.IsZero() {
			combined = append(combined, o)
		}
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Timestamp.Before(combined[j].Timestamp)
	})

	seen := make(map[entities.Key]bool, len(combined))
	out := combined[:0]
	for _, o := range combined {
		if seen[o.Key()] {
			continue
		}
		seen[o.Key()] = true
		out = append(out, o)
	}
	return out
}

// WriteTo writes observations in the combined CSV layout.
func WriteTo(w io.Writer, observations []entities.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, o := range observations {
		record := []string{
			o.Station,
			o.Timestamp.Format(TimeLayout),
			formatMeasurement(o.TempMean),
			formatMeasurement(o.TempMax),
			formatMeasurement(o.TempMin),
			formatMeasurement(o.Humidity),
			formatMeasurement(o.Pressure),
			formatMeasurement(o.Precip),
			formatMeasurement(o.WindSpd),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write creates the parent directory if needed and writes the combined
// CSV file.
func Write(path string, observations []entities.Observation) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteTo(f, observations); err != nil {
		return err
	}
	return f.Close()
}

// ReadFrom parses a combined CSV.
func ReadFrom(r io.Reader) ([]entities.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	if _, ok := idx["DATA"]; !ok {
		return nil, fmt.Errorf("combined CSV has no DATA column")
	}

	var observations []entities.Observation
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		ts, err := time.ParseInLocation(TimeLayout, field(record, idx, "DATA"), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad DATA value %q: %w", field(record, idx, "DATA"), err)
		}

		observations = append(observations, entities.Observation{
			Station:   field(record, idx, "ESTACAO"),
			Timestamp: ts,
			TempMean:  parseMeasurement(field(record, idx, "TEMPERATURA_MEDIA")),
			TempMax:   parseMeasurement(field(record, idx, "TEMPERATURA_MAXIMA")),
			TempMin:   parseMeasurement(field(record, idx, "TEMPERATURA_MINIMA")),
			Humidity:  parseMeasurement(field(record, idx, "UMIDADE_RELATIVA")),
			Pressure:  parseMeasurement(field(record, idx, "PRESSAO_ATMOSFERICA")),
			Precip:    parseMeasurement(field(record, idx, "PRECIPITACAO")),
			WindSpd:   parseMeasurement(field(record, idx, "VELOCIDADE_VENTO")),
		})
	}
	return observations, nil
}

// Read loads a combined CSV from disk.
func Read(path string) ([]entities.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadFrom(f)
}

// ReadRawDir loads every per-year CSV below the raw directory. The raw
// directory also holds the downloaded .zip bundles, which are skipped.
func ReadRawDir(rawDir string) ([]entities.Observation, error) {
	var observations []entities.Observation
	walkErr := filepath.WalkDir(rawDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".csv") {
			return nil
		}
		obs, err := Read(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		observations = append(observations, obs...)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return observations, nil
}

// FilterRange keeps the observations falling inside [from, to]. Zero
// bounds are open.
func FilterRange(observations []entities.Observation, from, to time.Time) []entities.Observation {
	var out []entities.Observation
	for _, o := range observations {
		if !from.IsZero() && o.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && o.Timestamp.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func field(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseMeasurement(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func formatMeasurement(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
