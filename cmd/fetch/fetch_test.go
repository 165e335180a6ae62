package main

import (
	"testing"
	"time"
)

func TestParseYears(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	years, err := parseYears("all", now)
	if err != nil {
		t.Fatalf(`parseYears("all") failed: %v`, err)
	}
	if years[0] != firstPortalYear || years[len(years)-1] != 2024 {
		t.Errorf("expected %d..2024, got %d..%d", firstPortalYear, years[0], years[len(years)-1])
	}

	years, err = parseYears("2019-2021", now)
	if err != nil {
		t.Fatalf(`parseYears("2019-2021") failed: %v`, err)
	}
	if len(years) != 3 || years[0] != 2019 || years[2] != 2021 {
		t.Errorf("expected [2019 2020 2021], got %v", years)
	}

	years, err = parseYears("2019, 2021 2023", now)
	if err != nil {
		t.Fatalf("parseYears list failed: %v", err)
	}
	if len(years) != 3 || years[0] != 2019 || years[1] != 2021 || years[2] != 2023 {
		t.Errorf("expected [2019 2021 2023], got %v", years)
	}

	for _, bad := range []string{"2021-2019", "19x9", "2019-", "-2019", ","} {
		if _, err := parseYears(bad, now); err == nil {
			t.Errorf("expected parseYears(%q) to fail", bad)
		}
	}
}
