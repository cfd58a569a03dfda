package utils_test

import (
	"testing"
	"time"

	"github.com/dosewise/dosewise/internal/utils"
)

func TestLoadLocationFallsBackToUTC(t *testing.T) {
	if loc := utils.LoadLocation(""); loc != time.UTC {
		t.Fatalf("empty name should resolve to UTC, got %v", loc)
	}
	if loc := utils.LoadLocation("Not/AZone"); loc != time.UTC {
		t.Fatalf("unknown name should resolve to UTC, got %v", loc)
	}
}

func TestLoadLocationResolvesIANAName(t *testing.T) {
	loc := utils.LoadLocation("America/New_York")
	if loc.String() != "America/New_York" {
		t.Fatalf("expected America/New_York, got %v", loc)
	}
}

func TestLocalHourRespectsLocation(t *testing.T) {
	// 14:00 UTC is 10:00 in New York during daylight saving time.
	at := time.Date(2026, 7, 1, 14, 0, 0, 0, time.UTC)
	if h := utils.LocalHour(at, time.UTC); h != 14 {
		t.Fatalf("expected hour 14 in UTC, got %d", h)
	}
	ny := utils.LoadLocation("America/New_York")
	if h := utils.LocalHour(at, ny); h != 10 {
		t.Fatalf("expected hour 10 in New York, got %d", h)
	}
}

func TestLocalTimeString(t *testing.T) {
	at := time.Date(2026, 7, 1, 14, 5, 0, 0, time.UTC)
	if s := utils.LocalTimeString(at, time.UTC); s != "2026-07-01 14:05" {
		t.Fatalf("unexpected rendering %q", s)
	}
}
