package integration

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/rmaia/inmet-station/internal/entities"
)

// Raw INMET station files are latin-1, semicolon separated, use a
// decimal comma and encode missing values as -9999. A station metadata
// preamble (REGIAO:;SE / ESTACAO:;... / CODIGO (WMO):;A740 / ...)
// precedes the real header row.

type column int

const (
	colIgnore column = iota
	colDate
	colHour
	colTempMean
	colTempMax
	colTempMin
	colHumidity
	colPressure
	colPrecip
	colWind
)

// classifyColumn maps a normalized header cell to a known measurement.
func classifyColumn(name string) column {
	switch {
	case strings.HasPrefix(name, "DATA"):
		return colDate
	case strings.HasPrefix(name, "HORA"):
		return colHour
	case strings.Contains(name, "PRECIPITACAO"):
		return colPrecip
	case strings.Contains(name, "PRESSAO_ATMOSFERICA"):
		return colPressure
	case strings.Contains(name, "TEMPERATURA_MAXIMA"):
		return colTempMax
	case strings.Contains(name, "TEMPERATURA_MINIMA"):
		return colTempMin
	case strings.Contains(name, "TEMPERATURA_DO_AR"), strings.Contains(name, "TEMPERATURA_MEDIA"):
		return colTempMean
	case strings.Contains(name, "UMIDADE_RELATIVA"):
		return colHumidity
	case strings.Contains(name, "VELOCIDADE") && strings.Contains(name, "VENTO"),
		strings.Contains(name, "VELOCIDADE_VENTO"):
		return colWind
	default:
		return colIgnore
	}
}

// ParseStationCSV reads one raw INMET CSV and returns its observations.
// Rows with an unparseable timestamp are skipped; a file without a
// recognizable header row is an error.
func ParseStationCSV(r io.Reader, fallbackStation string) ([]entities.Observation, error) {
	decoded := charmap.ISO8859_1.NewDecoder().Reader(r)
	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	station := fallbackStation
	stationCode := ""
	var mapping []column
	var observations []entities.Observation

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		line = strings.TrimPrefix(line, "\uFEFF")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ";")

		if mapping == nil {
			// Still in the preamble, or looking at the header row.
			key := NormalizeColumn(fields[0])
			switch {
			case key == "ESTACAO" && len(fields) > 1:
				station = strings.TrimSpace(fields[1])
				continue
			case strings.HasPrefix(key, "CODIGO") && len(fields) > 1:
				stationCode = strings.TrimSpace(fields[1])
				continue
			case strings.HasPrefix(key, "DATA") && len(fields) >= 3:
				mapping = make([]column, len(fields))
				for i, f := range fields {
					mapping[i] = classifyColumn(NormalizeColumn(f))
				}
				continue
			default:
				continue
			}
		}

		obs := entities.Observation{Station: station, StationCode: stationCode}
		var dateStr, hourStr string
		for i, f := range fields {
			if i >= len(mapping) {
				break
			}
			switch mapping[i] {
			case colDate:
				dateStr = strings.TrimSpace(f)
			case colHour:
				hourStr = strings.TrimSpace(f)
			case colTempMean:
				obs.TempMean = parseMeasurement(f)
			case colTempMax:
				obs.TempMax = parseMeasurement(f)
			case colTempMin:
				obs.TempMin = parseMeasurement(f)
			case colHumidity:
				obs.Humidity = parseMeasurement(f)
			case colPressure:
				obs.Pressure = parseMeasurement(f)
			case colPrecip:
				obs.Precip = parseMeasurement(f)
			case colWind:
				obs.WindSpd = parseMeasurement(f)
			}
		}

		ts, err := parseTimestamp(dateStr, hourStr)
		if err != nil {
			// Broken rows happen in the portal files; keep going.
			continue
		}
		obs.Timestamp = ts
		observations = append(observations, obs)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read station CSV: %w", err)
	}
	if mapping == nil {
		return nil, fmt.Errorf("no header row found in station CSV")
	}

	return observations, nil
}

// parseMeasurement converts a portal cell to a float, treating empty
// cells and the -9999 sentinel as missing.
func parseMeasurement(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if v <= -9999 {
		return nil
	}
	return &v
}

var dateLayouts = []string{"2006/01/02", "2006-01-02", "02/01/2006"}

// parseTimestamp combines the DATA and HORA cells into a UTC timestamp.
// The portal switched date formats over the years and writes hours as
// either "1500 UTC" or "15:00".
func parseTimestamp(dateStr, hourStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	var day time.Time
	var err error
	for _, layout := range dateLayouts {
		day, err = time.ParseInLocation(layout, dateStr, time.UTC)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", dateStr)
	}

	hourStr = strings.TrimSpace(strings.TrimSuffix(hourStr, "UTC"))
	hourStr = strings.ReplaceAll(hourStr, ":", "")
	if hourStr == "" {
		return day, nil
	}
	if len(hourStr) != 4 {
		return time.Time{}, fmt.Errorf("unrecognized hour %q", hourStr)
	}
	hour, err := strconv.Atoi(hourStr[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized hour %q", hourStr)
	}
	minute, err := strconv.Atoi(hourStr[2:])
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized hour %q", hourStr)
	}

	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute), nil
}
