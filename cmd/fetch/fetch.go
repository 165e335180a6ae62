package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rmaia/inmet-station/internal/config"
	"github.com/rmaia/inmet-station/internal/integration"
	"github.com/rmaia/inmet-station/internal/logging"
	"github.com/rmaia/inmet-station/internal/repository"
	"github.com/rmaia/inmet-station/internal/usecases"
)

// firstPortalYear is the earliest year the portal publishes automatic
// station bundles for.
const firstPortalYear = 2000

var yearSeparators = regexp.MustCompile(`[,\s]+`)

// parseYears expands the -years flag: "all", "A-B" or a comma/space
// separated list.
func parseYears(spec string, now time.Time) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "all" {
		var years []int
		for y := firstPortalYear; y <= now.Year(); y++ {
			years = append(years, y)
		}
		return years, nil
	}

	if strings.Contains(spec, "-") {
		parts := strings.SplitN(spec, "-", 2)
		a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid year range %q", spec)
		}
		b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid year range %q", spec)
		}
		if b < a {
			return nil, fmt.Errorf("invalid year range %q: end before start", spec)
		}
		var years []int
		for y := a; y <= b; y++ {
			years = append(years, y)
		}
		return years, nil
	}

	var years []int
	for _, tok := range yearSeparators.Split(spec, -1) {
		if tok == "" {
			continue
		}
		y, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", tok)
		}
		years = append(years, y)
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("no years in %q", spec)
	}
	return years, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel(), "fetch")

	years := flag.String("years", "all", `years to fetch: "all", "2019-2023" or "2019,2021"`)
	rawDir := flag.String("raw-dir", cfg.Paths.RawDir, "directory for downloaded bundles and per-year CSVs")
	combined := flag.String("combined", cfg.Paths.Combined, "path of the combined CSV")
	station := flag.String("station", cfg.Station.Name, "target station name")
	dbPath := flag.String("db", cfg.Paths.Database, "path of the observation database")
	flag.Parse()

	yearList, err := parseYears(*years, time.Now())
	if err != nil {
		slog.Error("invalid -years flag", "error", err)
		os.Exit(1)
	}

	repo, err := repository.NewSQLiteObservationRepository(*dbPath)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	scraper := integration.NewPortalScraper(cfg.Portal.BaseURL, *station, cfg.PortalTimeout())
	useCase := usecases.NewObservationUseCase(repo, scraper, nil, *rawDir, *combined)

	slog.Info("starting fetch", "station", *station, "years", len(yearList), "raw_dir", *rawDir)
	if _, err := useCase.FetchYears(yearList); err != nil {
		slog.Error("fetch failed", "error", err)
		os.Exit(1)
	}

	rows, err := useCase.Combine()
	if err != nil {
		slog.Error("combine failed", "error", err)
		os.Exit(1)
	}
	slog.Info("done", "combined", *combined, "rows", rows)
}
