// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rmaia/inmet-station/internal/analysis"
	"github.com/rmaia/inmet-station/internal/dataset"
	"github.com/rmaia/inmet-station/internal/entities"
	"github.com/rmaia/inmet-station/internal/integration"
	"github.com/rmaia/inmet-station/internal/integration/openai"
	"github.com/rmaia/inmet-station/internal/repository"
)

// ObservationUseCase wires the portal scraper, the observation store
// and the combined CSV together.
type ObservationUseCase struct {
	repo          repository.ObservationRepository
	scraper       *integration.PortalScraper
	openAIService openai.WeatherAgent

	rawDir       string
	combinedPath string
}

// NewObservationUseCase creates the use case. The agent may be nil;
// natural-language queries then fall back to a plain help answer.
func NewObservationUseCase(
	repo repository.ObservationRepository,
	scraper *integration.PortalScraper,
	agent openai.WeatherAgent,
	rawDir, combinedPath string,
) *ObservationUseCase {
	return &ObservationUseCase{
		repo:          repo,
		scraper:       scraper,
		openAIService: agent,
		rawDir:        rawDir,
		combinedPath:  combinedPath,
	}
}

// FetchYears downloads and filters the given years. Each year is
// independent: a failing year is logged and skipped, and the per-year
// filtered CSV lands under <rawDir>/<year>/. Returns the number of
// years that produced data; an error only when none did.
func (uc *ObservationUseCase) FetchYears(years []int) (int, error) {
	fetched := 0
	total := 0
	for _, year := range years {
		yearDir := filepath.Join(uc.rawDir, strconv.Itoa(year))
		observations, err := uc.scraper.FetchYear(year, yearDir)
		if err != nil {
			slog.Warn("skipping year", "year", year, "error", err)
			continue
		}
		if len(observations) == 0 {
			slog.Warn("no station data in year bundle", "year", year, "station", uc.scraper.Station())
			continue
		}

		observations = dataset.Combine(observations)
		csvPath := filepath.Join(yearDir, fmt.Sprintf("%d_%s.csv", year, integration.Slugify(uc.scraper.Station())))
		if err := dataset.Write(csvPath, observations); err != nil {
			slog.Warn("failed to write per-year CSV", "year", year, "error", err)
			continue
		}
		if uc.repo != nil {
			if err := uc.repo.SaveObservations(observations); err != nil {
				slog.Warn("failed to store observations", "year", year, "error", err)
			}
		}

		fetched++
		total += len(observations)
	}

	if fetched == 0 {
		return 0, fmt.Errorf("no data fetched for any of the %d requested years", len(years))
	}
	slog.Info("fetch finished", "years_ok", fetched, "years_requested", len(years), "observations", total)
	return fetched, nil
}

// Combine concatenates every per-year CSV under the raw directory,
// deduplicates by (station, timestamp), sorts by timestamp and writes
// the combined CSV. Fails when the raw directory yields no records.
func (uc *ObservationUseCase) Combine() (int, error) {
	observations, err := dataset.ReadRawDir(uc.rawDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read raw directory %s: %w", uc.rawDir, err)
	}
	combined := dataset.Combine(observations)
	if len(combined) == 0 {
		return 0, fmt.Errorf("no observations found under %s", uc.rawDir)
	}

	if err := dataset.Write(uc.combinedPath, combined); err != nil {
		return 0, err
	}
	slog.Info("combined CSV written", "path", uc.combinedPath, "rows", len(combined))
	return len(combined), nil
}

// GetLatest returns the newest stored observation for the configured
// station.
func (uc *ObservationUseCase) GetLatest() (*entities.Observation, error) {
	return uc.repo.GetLatest(uc.scraper.Station())
}

// GetSummary computes the headline metrics over the stored history.
func (uc *ObservationUseCase) GetSummary() (dataset.Summary, error) {
	observations, err := uc.repo.GetObservations(uc.scraper.Station(), time.Time{}, time.Time{})
	if err != nil {
		return dataset.Summary{}, err
	}
	return dataset.Summarize(observations), nil
}

// GetStations returns all station names in the store.
func (uc *ObservationUseCase) GetStations() ([]string, error) {
	return uc.repo.GetStations()
}

// GetLastUpdateTime returns the newest stored timestamp.
func (uc *ObservationUseCase) GetLastUpdateTime() (time.Time, error) {
	return uc.repo.GetLastUpdateTime()
}

// HandleNaturalLanguageQuery interprets a user's free-text query using
// the AI agent and returns an appropriate response string.
func (uc *ObservationUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error) {
	if uc.openAIService == nil {
		return "I only understand commands. Use /help to see what I can do.", nil
	}

	stations, err := uc.GetStations()
	if err != nil {
		slog.Error("failed to list stations for agent", "error", err)
		return "Sorry, I couldn't reach the observation store right now.", nil
	}

	agentResp, err := uc.openAIService.InterpretUserQuery(ctx, query, stations)
	if err != nil {
		slog.Error("failed to interpret query", "error", err)
		return "Sorry, I'm having trouble understanding right now. Please try again later or use /help.", nil
	}

	switch agentResp.CommandName {
	case "GetLatest":
		latest, err := uc.GetLatest()
		if err != nil {
			slog.Error("failed to fetch latest observation", "error", err)
			return "Sorry, I couldn't fetch the latest observation right now.", nil
		}
		msg := agentResp.UserMessage
		if msg != "" {
			msg += "\n\n"
		}
		return msg + uc.FormatLatest(latest), nil
	case "GetSummary":
		summary, err := uc.GetSummary()
		if err != nil {
			slog.Error("failed to compute summary", "error", err)
			return "Sorry, I couldn't compute the summary right now.", nil
		}
		msg := agentResp.UserMessage
		if msg != "" {
			msg += "\n\n"
		}
		return msg + uc.FormatSummary(summary), nil
	case "GeneralQuery":
		return agentResp.UserMessage, nil
	default:
		slog.Warn("agent returned unexpected command", "command", agentResp.CommandName)
		return "I'm not sure how to respond to that. You can use /help for commands.", nil
	}
}

// TrainModel runs the regression example over the stored history.
func (uc *ObservationUseCase) TrainModel() (*analysis.Result, error) {
	observations, err := uc.repo.GetObservations(uc.scraper.Station(), time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	return analysis.TrainTemperatureModel(observations)
}

// FormatLatest formats the newest observation for display.
func (uc *ObservationUseCase) FormatLatest(o *entities.Observation) string {
	if o == nil {
		return "No observations stored yet. Run the fetch command first."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Latest observation for %s:\n\n", o.Station))
	result.WriteString(fmt.Sprintf("🕒 %s\n", o.Timestamp.Format("2006-01-02 15:04 MST")))
	writeMeasurement(&result, "🌡️ Temperature", o.TempMean, "°C")
	writeMeasurement(&result, "⬆️ Max (prev. hour)", o.TempMax, "°C")
	writeMeasurement(&result, "⬇️ Min (prev. hour)", o.TempMin, "°C")
	writeMeasurement(&result, "💧 Humidity", o.Humidity, "%")
	writeMeasurement(&result, "🔽 Pressure", o.Pressure, "mB")
	writeMeasurement(&result, "🌧️ Precipitation", o.Precip, "mm")
	writeMeasurement(&result, "🍃 Wind speed", o.WindSpd, "m/s")
	return result.String()
}

// FormatSummary formats the headline metrics for display.
func (uc *ObservationUseCase) FormatSummary(s dataset.Summary) string {
	if s.Rows == 0 {
		return "No observations stored yet. Run the fetch command first."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Summary for %s (%d records):\n\n", s.Station, s.Rows))
	if s.First != nil && s.Last != nil {
		result.WriteString(fmt.Sprintf("📅 %s — %s\n",
			s.First.Format("2006-01-02"), s.Last.Format("2006-01-02")))
	}
	writeMeasurement(&result, "🌡️ Mean temperature", s.MeanTemp, "°C")
	writeMeasurement(&result, "💧 Mean humidity", s.MeanHum, "%")
	writeMeasurement(&result, "🌧️ Total precipitation", s.TotalPrecip, "mm")
	writeMeasurement(&result, "🍃 Mean wind speed", s.MeanWind, "m/s")
	return result.String()
}

func writeMeasurement(b *strings.Builder, label string, v *float64, unit string) {
	if v == nil {
		return
	}
	b.WriteString(fmt.Sprintf("%s: %.1f %s\n", label, *v, unit))
}
