package integration

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const stationName = "SAO LUIZ DO PARAITINGA"

// buildBundle builds an in-memory yearly archive with one CSV per
// station name.
func buildBundle(t *testing.T, stations map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range stations {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create archive entry: %v", err)
		}
		if _, err := w.Write(encodeLatin1(t, content)); err != nil {
			t.Fatalf("failed to write archive entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
	return buf.Bytes()
}

func stationCSV(station, code, date string) string {
	return fmt.Sprintf(`ESTACAO:;%s
CODIGO (WMO):;%s
DATA (YYYY-MM-DD);HORA (UTC);PRECIPITAÇÃO TOTAL, HORÁRIO (mm);TEMPERATURA DO AR - BULBO SECO, HORARIA (°C)
%s;0000 UTC;0,0;21,3
%s;0100 UTC;0,4;20,9
`, station, code, date, date)
}

// mockPortal serves a portal index with year links, year pages with
// zip links and the bundles themselves.
func mockPortal(t *testing.T, bundles map[int][]byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/dadoshistoricos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>")
		for year := range bundles {
			fmt.Fprintf(w, `<a href="/ano/%d">ANO %d (AUTOMÁTICA)</a>`, year, year)
		}
		fmt.Fprint(w, `<a href="/manual">DADOS DE ESTAÇÕES CONVENCIONAIS</a>`)
		fmt.Fprint(w, "</body></html>")
	})

	mux.HandleFunc("/ano/", func(w http.ResponseWriter, r *http.Request) {
		year := r.URL.Path[len("/ano/"):]
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><a href="/zips/%s.zip">download</a></body></html>`, year)
	})

	mux.HandleFunc("/zips/", func(w http.ResponseWriter, r *http.Request) {
		var year int
		if _, err := fmt.Sscanf(r.URL.Path, "/zips/%d.zip", &year); err != nil {
			http.NotFound(w, r)
			return
		}
		bundle, ok := bundles[year]
		if !ok || bundle == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write(bundle)
	})

	return httptest.NewServer(mux)
}

func TestYearLinks(t *testing.T) {
	bundle := buildBundle(t, map[string]string{
		"INMET_SE_SP_A740_SAO LUIZ DO PARAITINGA_2019.CSV": stationCSV(stationName, "A740", "2019/01/01"),
	})
	server := mockPortal(t, map[int][]byte{2019: bundle, 2020: bundle})
	defer server.Close()

	scraper := NewPortalScraper(server.URL+"/dadoshistoricos", stationName, 5*time.Second)
	links, err := scraper.YearLinks()
	if err != nil {
		t.Fatalf("YearLinks failed: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 year links, got %d: %v", len(links), links)
	}
	if links[2019] == "" || links[2020] == "" {
		t.Errorf("expected links for 2019 and 2020, got %v", links)
	}
}

func TestFetchYearFiltersStation(t *testing.T) {
	bundle := buildBundle(t, map[string]string{
		"INMET_SE_SP_A740_SÃO LUIZ DO PARAITINGA_2019.CSV": stationCSV(stationName, "A740", "2019/01/01"),
		"INMET_SE_SP_A701_SAO PAULO - MIRANTE_2019.CSV":    stationCSV("SAO PAULO - MIRANTE", "A701", "2019/01/01"),
	})
	server := mockPortal(t, map[int][]byte{2019: bundle})
	defer server.Close()

	rawDir := t.TempDir()
	scraper := NewPortalScraper(server.URL+"/dadoshistoricos", stationName, 5*time.Second)

	observations, err := scraper.FetchYear(2019, rawDir)
	if err != nil {
		t.Fatalf("FetchYear failed: %v", err)
	}
	if len(observations) != 2 {
		t.Fatalf("expected 2 observations from the target station only, got %d", len(observations))
	}
	for _, o := range observations {
		if o.Station != stationName {
			t.Errorf("expected station %q, got %q", stationName, o.Station)
		}
		if o.StationCode != "A740" {
			t.Errorf("expected station code A740, got %q", o.StationCode)
		}
	}

	// The archive is saved into the raw directory.
	saved := filepath.Join(rawDir, "2019_2019.zip")
	if _, err := os.Stat(saved); err != nil {
		t.Errorf("expected saved bundle at %s: %v", saved, err)
	}
}

func TestFetchYearIdempotent(t *testing.T) {
	bundle := buildBundle(t, map[string]string{
		"INMET_SE_SP_A740_SAO LUIZ DO PARAITINGA_2019.CSV": stationCSV(stationName, "A740", "2019/01/01"),
	})
	server := mockPortal(t, map[int][]byte{2019: bundle})
	defer server.Close()

	rawDir := t.TempDir()
	scraper := NewPortalScraper(server.URL+"/dadoshistoricos", stationName, 5*time.Second)

	if _, err := scraper.FetchYear(2019, rawDir); err != nil {
		t.Fatalf("first FetchYear failed: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(rawDir, "2019_2019.zip"))
	if err != nil {
		t.Fatalf("failed to read saved bundle: %v", err)
	}

	if _, err := scraper.FetchYear(2019, rawDir); err != nil {
		t.Fatalf("second FetchYear failed: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(rawDir, "2019_2019.zip"))
	if err != nil {
		t.Fatalf("failed to read saved bundle: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("expected the saved bundle to be identical after a re-fetch")
	}
}

func TestFetchYearMissing(t *testing.T) {
	server := mockPortal(t, map[int][]byte{2019: nil})
	defer server.Close()

	scraper := NewPortalScraper(server.URL+"/dadoshistoricos", stationName, 5*time.Second)
	if _, err := scraper.FetchYear(2007, t.TempDir()); err == nil {
		t.Fatal("expected an error for a year without a portal link")
	}
}

func TestFetchYearMalformedBundle(t *testing.T) {
	// The portal serves garbage instead of a zip; the bundle is
	// skipped and FetchYear reports zero observations, not an error.
	mux := http.NewServeMux()
	mux.HandleFunc("/dadoshistoricos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<a href="/zips/2019.zip">ANO 2019 (AUTOMÁTICA)</a>`)
	})
	mux.HandleFunc("/zips/2019.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		io.WriteString(w, "this is not a zip archive")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	scraper := NewPortalScraper(server.URL+"/dadoshistoricos", stationName, 5*time.Second)
	observations, err := scraper.FetchYear(2019, t.TempDir())
	if err != nil {
		t.Fatalf("FetchYear should skip a malformed bundle, got error: %v", err)
	}
	if len(observations) != 0 {
		t.Fatalf("expected no observations from a malformed bundle, got %d", len(observations))
	}
}

func TestFetchYearDirectArchiveLink(t *testing.T) {
	// Some year links point straight at the archive instead of a page
	// with zip links.
	bundle := buildBundle(t, map[string]string{
		"INMET_SE_SP_A740_SAO LUIZ DO PARAITINGA_2019.CSV": stationCSV(stationName, "A740", "2019/01/01"),
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/dadoshistoricos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<a href="/zips/2019.zip">ANO 2019 (AUTOMÁTICA)</a>`)
	})
	mux.HandleFunc("/zips/2019.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(bundle)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	scraper := NewPortalScraper(server.URL+"/dadoshistoricos", stationName, 5*time.Second)
	observations, err := scraper.FetchYear(2019, t.TempDir())
	if err != nil {
		t.Fatalf("FetchYear failed: %v", err)
	}
	if len(observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(observations))
	}
}
