package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dosewise/dosewise/internal/domain"
	"github.com/dosewise/dosewise/internal/services"
)

func localEntry(t *testing.T, loc *time.Location, day, hour int, brand, value string) domain.Entry {
	t.Helper()
	at := time.Date(2026, 8, day, hour, 15, 0, 0, loc)
	return domain.Entry{
		Type:            domain.EntryInsulin,
		Value:           value,
		Units:           "IU",
		MedicationBrand: brand,
		OccurredAt:      at,
	}
}

func TestAnalyzeMorningBucket(t *testing.T) {
	loc := time.UTC
	entries := []domain.Entry{
		localEntry(t, loc, 30, 9, "Actrapid", "6"),
		localEntry(t, loc, 29, 8, "Actrapid", "5"),
		localEntry(t, loc, 28, 7, "Actrapid", "6"),
	}
	summary := services.AnalyzeMedicationPatterns(entries, loc)
	if !strings.Contains(summary, "Morning (06:00-11:59): Primarily uses Actrapid (3 entries)") {
		t.Fatalf("expected morning bucket line, got %q", summary)
	}
}

func TestAnalyzeNoInsulinEntries(t *testing.T) {
	summary := services.AnalyzeMedicationPatterns(nil, time.UTC)
	if summary != services.NoPatternData {
		t.Fatalf("expected sentinel, got %q", summary)
	}
	if summary == "" {
		t.Fatalf("sentinel must not be empty")
	}
}

func TestAnalyzeBucketsUseSuppliedTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 12:00 UTC in August is 08:00 in New York: morning there, afternoon in UTC.
	e := domain.Entry{
		Type:            domain.EntryInsulin,
		Value:           "4",
		Units:           "IU",
		MedicationBrand: "Humalog",
		OccurredAt:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	summary := services.AnalyzeMedicationPatterns([]domain.Entry{e}, ny)
	if !strings.Contains(summary, "Morning") {
		t.Fatalf("expected morning bucket in New York time, got %q", summary)
	}
	summary = services.AnalyzeMedicationPatterns([]domain.Entry{e}, time.UTC)
	if !strings.Contains(summary, "Afternoon") {
		t.Fatalf("expected afternoon bucket in UTC, got %q", summary)
	}
}

func TestAnalyzeEveningWrapsPastMidnight(t *testing.T) {
	loc := time.UTC
	entries := []domain.Entry{
		localEntry(t, loc, 30, 22, "Lantus", "10"),
		localEntry(t, loc, 29, 2, "Lantus", "10"),
	}
	summary := services.AnalyzeMedicationPatterns(entries, loc)
	if !strings.Contains(summary, "Evening/Night (18:00-05:59): Primarily uses Lantus (2 entries)") {
		t.Fatalf("expected evening bucket spanning midnight, got %q", summary)
	}
}

func TestAnalyzeRecentDoseRange(t *testing.T) {
	loc := time.UTC
	entries := []domain.Entry{
		localEntry(t, loc, 30, 8, "Actrapid", "8"),
		localEntry(t, loc, 29, 8, "Actrapid", "6"),
		localEntry(t, loc, 28, 8, "Actrapid", "10"),
	}
	summary := services.AnalyzeMedicationPatterns(entries, loc)
	if !strings.Contains(summary, "Recent dose range: 6-10 IU (average: 8.0 IU)") {
		t.Fatalf("expected dose range line, got %q", summary)
	}
}

func TestAnalyzeRecentDoseRangeUsesFiveMostRecent(t *testing.T) {
	loc := time.UTC
	// Seven entries, newest first; the 50 IU outlier is sixth and must be
	// outside the sample.
	values := []string{"6", "7", "6", "8", "7", "50", "6"}
	var entries []domain.Entry
	for i, v := range values {
		entries = append(entries, localEntry(t, loc, 30-i%5, 8, "Actrapid", v))
	}
	summary := services.AnalyzeMedicationPatterns(entries, loc)
	if strings.Contains(summary, "50") {
		t.Fatalf("dose range should only cover the 5 most recent entries, got %q", summary)
	}
	if !strings.Contains(summary, "Recent dose range: 6-8 IU") {
		t.Fatalf("expected range 6-8, got %q", summary)
	}
}

func TestAnalyzeSkipsBlankBrandsAndBadValues(t *testing.T) {
	loc := time.UTC
	entries := []domain.Entry{
		localEntry(t, loc, 30, 8, "  ", "not-a-number"),
		localEntry(t, loc, 29, 8, "", "also bad"),
	}
	summary := services.AnalyzeMedicationPatterns(entries, loc)
	if summary != services.NoPatternData {
		t.Fatalf("expected sentinel when nothing is usable, got %q", summary)
	}
}

func TestAnalyzeTieGoesToFirstEncountered(t *testing.T) {
	loc := time.UTC
	entries := []domain.Entry{
		localEntry(t, loc, 30, 8, "Humalog", "4"),
		localEntry(t, loc, 29, 8, "Actrapid", "6"),
	}
	summary := services.AnalyzeMedicationPatterns(entries, loc)
	if !strings.Contains(summary, "Primarily uses Humalog") {
		t.Fatalf("expected first-encountered brand to win the tie, got %q", summary)
	}
}
