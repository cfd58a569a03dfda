package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dosewise/dosewise/internal/domain"
	"github.com/dosewise/dosewise/internal/services"
)

func testPatient() *domain.Patient {
	return &domain.Patient{
		ID:            1,
		OwnerID:       7,
		Name:          "Maria Santos",
		DateOfBirth:   time.Date(1958, 4, 12, 0, 0, 0, 0, time.UTC),
		DiabetesType:  domain.DiabetesType2,
		Lifestyle:     "Retired, walks daily",
		ActivityLevel: domain.ActivityModerate,
		Medications:   `[{"brand":"Actrapid","dosage":"6 IU","timingNote":"before breakfast"}]`,
	}
}

func buildPrompt(t *testing.T, recent, older []domain.Entry) string {
	t.Helper()
	builder := services.NewPromptBuilder(domain.DefaultGlucoseTargets())
	return builder.Build(services.PromptInput{
		Patient:         testPatient(),
		Recent:          recent,
		Older:           older,
		TargetTime:      time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		Location:        time.UTC,
		PatternAnalysis: services.NoPatternData,
		Now:             time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	})
}

func TestBuildIncludesMandatorySections(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	recent := []domain.Entry{glucoseEntry(now.Add(-2 * time.Hour))}
	older := []domain.Entry{mealEntry(now.Add(-30 * time.Hour))}
	prompt := buildPrompt(t, recent, older)

	sections := []string{
		"INSTRUCTIONS (in priority order):",
		"PATIENT INFORMATION:",
		"TARGET ADMINISTRATION TIME:",
		"RECENT HISTORY (LAST 24 HOURS",
		"OLDER HISTORY (24-72 HOURS AGO",
		"MEDICATION PATTERNS:",
		"CRITICAL JSON FORMAT REQUIREMENTS:",
		"EXAMPLE OF A GOOD RESPONSE",
		"EXAMPLE OF A POOR RESPONSE",
		"FINAL SAFETY REMINDER:",
	}
	pos := 0
	for _, section := range sections {
		idx := strings.Index(prompt[pos:], section)
		if idx < 0 {
			t.Fatalf("section %q missing or out of order", section)
		}
		pos += idx
	}
	for _, field := range []string{"doseUnits", "medicationName", "reasoning", "safetyNotes", "confidence", "recommendedMonitoring"} {
		if !strings.Contains(prompt, field) {
			t.Fatalf("response schema missing field %q", field)
		}
	}
	if !strings.Contains(prompt, "compelling") {
		t.Fatalf("expected brand-consistency constraint in prompt")
	}
	if !strings.Contains(prompt, "Age: 68 years") {
		t.Fatalf("expected derived age in patient info, got prompt:\n%s", prompt)
	}
}

func TestBuildFlagsStaleGlucoseReading(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	// Glucose reading predates the most recent insulin dose: stale.
	recent := []domain.Entry{
		insulinEntry(now.Add(-1*time.Hour), "Actrapid", "6"),
		glucoseEntry(now.Add(-3 * time.Hour)),
	}
	older := []domain.Entry{mealEntry(now.Add(-30 * time.Hour))}
	prompt := buildPrompt(t, recent, older)
	if !strings.Contains(prompt, "STALE GLUCOSE READING") {
		t.Fatalf("expected stale-reading guidance when glucose predates last insulin dose")
	}
	if !strings.Contains(prompt, "fresh glucose reading is needed") {
		t.Fatalf("expected fresh-reading instruction in stale guidance")
	}
}

func TestBuildNoStaleFlagWhenGlucoseIsFresh(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	recent := []domain.Entry{
		glucoseEntry(now.Add(-1 * time.Hour)),
		insulinEntry(now.Add(-3*time.Hour), "Actrapid", "6"),
	}
	prompt := buildPrompt(t, recent, nil)
	if strings.Contains(prompt, "STALE GLUCOSE READING") {
		t.Fatalf("stale guidance must not appear when glucose postdates last insulin dose")
	}
}

func TestBuildNoStaleFlagWithoutInsulinHistory(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	recent := []domain.Entry{glucoseEntry(now.Add(-1 * time.Hour))}
	prompt := buildPrompt(t, recent, nil)
	if strings.Contains(prompt, "STALE GLUCOSE READING") {
		t.Fatalf("stale guidance requires both a glucose and an insulin entry")
	}
}

func TestNormalizeMedications(t *testing.T) {
	native := []domain.Medication{{Brand: "Lantus", Dosage: "10 IU"}}
	if got := services.NormalizeMedications(native); len(got) != 1 || got[0].Brand != "Lantus" {
		t.Fatalf("expected native list passed through, got %v", got)
	}

	encoded := `[{"brand":"Actrapid","dosage":"6 IU","timingNote":"mornings"}]`
	got := services.NormalizeMedications(encoded)
	if len(got) != 1 || got[0].Brand != "Actrapid" || got[0].TimingNote != "mornings" {
		t.Fatalf("expected parsed JSON string, got %v", got)
	}

	if got := services.NormalizeMedications("not json at all"); len(got) != 0 {
		t.Fatalf("expected empty list for garbage input, got %v", got)
	}
	if got := services.NormalizeMedications(nil); len(got) != 0 {
		t.Fatalf("expected empty list for nil, got %v", got)
	}
	if got := services.NormalizeMedications(42); len(got) != 0 {
		t.Fatalf("expected empty list for non-list value, got %v", got)
	}

	// Eagerly decoded JSON columns arrive as []any.
	decoded := []any{map[string]any{"brand": "Humalog", "dosage": "4 IU"}}
	got = services.NormalizeMedications(decoded)
	if len(got) != 1 || got[0].Brand != "Humalog" {
		t.Fatalf("expected []any round-trip, got %v", got)
	}
}

func TestBuildToleratesGarbageMedications(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	patient := testPatient()
	patient.Medications = "{{{not json"
	builder := services.NewPromptBuilder(domain.DefaultGlucoseTargets())
	prompt := builder.Build(services.PromptInput{
		Patient:         patient,
		Recent:          []domain.Entry{glucoseEntry(now.Add(-time.Hour))},
		TargetTime:      now,
		Location:        time.UTC,
		PatternAnalysis: services.NoPatternData,
		Now:             now,
	})
	if strings.Contains(prompt, "Usual medications") {
		t.Fatalf("unparsable medications must render as no list, got prompt with medications block")
	}
}
