// Package integration handles external service interactions
package integration

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rmaia/inmet-station/internal/entities"
)

const defaultPortalURL = "https://portal.inmet.gov.br/dadoshistoricos"

// yearLinkPattern matches the portal's yearly links for automatic
// stations, e.g. "ANO 2019 (AUTOMÁTICA)".
var yearLinkPattern = regexp.MustCompile(`ANO\s+(\d{4}).*AUTOM`)

// PortalScraper downloads yearly observation bundles from the INMET
// historic data portal and filters them down to one station.
type PortalScraper struct {
	baseURL     string
	userAgent   string
	station     string
	stationSlug string
	client      *http.Client

	yearLinks map[int]string // lazily fetched portal index
}

// NewPortalScraper creates a scraper for the given station. An empty
// URL selects the default portal address.
func NewPortalScraper(baseURL, station string, timeout time.Duration) *PortalScraper {
	if baseURL == "" {
		baseURL = defaultPortalURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PortalScraper{
		baseURL:     baseURL,
		userAgent:   "Mozilla/5.0",
		station:     station,
		stationSlug: Slugify(station),
		client:      &http.Client{Timeout: timeout},
	}
}

// Station returns the configured station name.
func (ps *PortalScraper) Station() string {
	return ps.station
}

// MatchesStation reports whether a bundle entry name belongs to the
// configured station.
func (ps *PortalScraper) MatchesStation(filename string) bool {
	return strings.Contains(Slugify(filename), ps.stationSlug)
}

func (ps *PortalScraper) get(rawURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", ps.userAgent)

	res, err := ps.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("unexpected status code for %s: %d %s", rawURL, res.StatusCode, res.Status)
	}
	return res, nil
}

// absoluteURL resolves portal hrefs that omit the scheme and host.
func (ps *PortalScraper) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	base, err := url.Parse(ps.baseURL)
	if err != nil {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base.Scheme + "://" + base.Host + href
}

// YearLinks scrapes the portal index page for per-year bundle links of
// automatic stations. The index is fetched once and cached.
func (ps *PortalScraper) YearLinks() (map[int]string, error) {
	if ps.yearLinks != nil {
		return ps.yearLinks, nil
	}

	slog.Info("fetching portal index", "url", ps.baseURL)
	res, err := ps.get(ps.baseURL)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse portal index: %w", err)
	}

	links := make(map[int]string)
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		text := strings.ToUpper(strings.TrimSpace(a.Text()))
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		m := yearLinkPattern.FindStringSubmatch(text)
		if m == nil {
			return
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		links[year] = ps.absoluteURL(href)
	})

	slog.Info("portal index scraped", "years", len(links))
	ps.yearLinks = links
	return links, nil
}

// zipLinks collects every .zip href on a year page.
func (ps *PortalScraper) zipLinks(doc *goquery.Document) []string {
	var out []string
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasSuffix(strings.ToLower(href), ".zip") {
			out = append(out, ps.absoluteURL(href))
		}
	})
	return out
}

// FetchYear downloads the yearly bundle(s) for one year, stores the
// archives under rawDir and returns the parsed observations of every
// CSV entry matching the configured station. A bundle that fails to
// download or parse is logged and skipped.
func (ps *PortalScraper) FetchYear(year int, rawDir string) ([]entities.Observation, error) {
	links, err := ps.YearLinks()
	if err != nil {
		return nil, err
	}
	yearURL, ok := links[year]
	if !ok {
		return nil, fmt.Errorf("no portal link found for year %d", year)
	}

	res, err := ps.get(yearURL)
	if err != nil {
		return nil, err
	}

	var zips []string
	contentType := strings.ToLower(res.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") {
		// The year link points straight at the archive.
		res.Body.Close()
		slog.Debug("year link is a direct archive", "year", year, "url", yearURL)
		zips = []string{yearURL}
	} else {
		doc, parseErr := goquery.NewDocumentFromReader(res.Body)
		res.Body.Close()
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse year page for %d: %w", year, parseErr)
		}
		zips = ps.zipLinks(doc)
	}
	if len(zips) == 0 {
		return nil, fmt.Errorf("no bundle links found for year %d", year)
	}

	var observations []entities.Observation
	for _, zurl := range zips {
		obs, err := ps.fetchBundle(year, zurl, rawDir)
		if err != nil {
			slog.Warn("skipping bundle", "year", year, "url", zurl, "error", err)
			continue
		}
		observations = append(observations, obs...)
	}

	slog.Info("year fetched", "year", year, "bundles", len(zips), "observations", len(observations))
	return observations, nil
}

// fetchBundle downloads one archive, saves it under rawDir and parses
// the station's CSV entries.
func (ps *PortalScraper) fetchBundle(year int, zurl, rawDir string) ([]entities.Observation, error) {
	res, err := ps.get(zurl)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to download bundle: %w", err)
	}

	if rawDir != "" {
		if err := os.MkdirAll(rawDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create raw directory: %w", err)
		}
		name := path.Base(zurl)
		dest := filepath.Join(rawDir, fmt.Sprintf("%d_%s", year, name))
		if err := os.WriteFile(dest, content, 0644); err != nil {
			return nil, fmt.Errorf("failed to save bundle: %w", err)
		}
	}

	return ps.extractStationCSVs(content)
}

// extractStationCSVs walks the archive entries and parses every CSV
// whose filename matches the station slug.
func (ps *PortalScraper) extractStationCSVs(content []byte) ([]entities.Observation, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle archive: %w", err)
	}

	var observations []entities.Observation
	matched := 0
	for _, entry := range zr.File {
		if !strings.HasSuffix(strings.ToLower(entry.Name), ".csv") {
			continue
		}
		if !ps.MatchesStation(entry.Name) {
			continue
		}
		matched++

		rc, err := entry.Open()
		if err != nil {
			slog.Warn("skipping unreadable archive entry", "entry", entry.Name, "error", err)
			continue
		}
		obs, err := ParseStationCSV(rc, ps.station)
		rc.Close()
		if err != nil {
			slog.Warn("skipping malformed station CSV", "entry", entry.Name, "error", err)
			continue
		}
		observations = append(observations, obs...)
	}

	slog.Debug("archive scanned", "entries", len(zr.File), "matched", matched, "observations", len(observations))
	return observations, nil
}
