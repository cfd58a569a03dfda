package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dosewise/dosewise/internal/domain"
	"github.com/dosewise/dosewise/internal/services"
)

func TestParseValidResponse(t *testing.T) {
	raw := `{"doseUnits": 12, "confidence": "HIGH", "medicationName": "Actrapid", "reasoning": "trend is rising", "safetyNotes": "verify no recent dose", "recommendedMonitoring": "re-check in 2 hours"}`
	parsed := services.ParseModelResponse(raw)
	if parsed.DoseUnits == nil || *parsed.DoseUnits != 12 {
		t.Fatalf("expected dose 12, got %v", parsed.DoseUnits)
	}
	if parsed.Confidence != domain.ConfidenceHigh {
		t.Fatalf("expected confidence normalized to high, got %q", parsed.Confidence)
	}
	if parsed.MedicationName != "Actrapid" {
		t.Fatalf("expected medication name, got %q", parsed.MedicationName)
	}
}

func TestParseCoercesStringDose(t *testing.T) {
	parsed := services.ParseModelResponse(`{"doseUnits": "7.5", "confidence": "medium"}`)
	if parsed.DoseUnits == nil || *parsed.DoseUnits != 7.5 {
		t.Fatalf("expected string dose coerced to 7.5, got %v", parsed.DoseUnits)
	}
	if parsed.Confidence != domain.ConfidenceMedium {
		t.Fatalf("expected medium, got %q", parsed.Confidence)
	}
}

func TestParseUnknownConfidenceLeftUnset(t *testing.T) {
	parsed := services.ParseModelResponse(`{"doseUnits": 5, "confidence": "very sure"}`)
	if parsed.Confidence != "" {
		t.Fatalf("unrecognized confidence should stay unset, got %q", parsed.Confidence)
	}
}

func TestParseToleratesCodeFences(t *testing.T) {
	raw := "```json\n{\"doseUnits\": 6, \"confidence\": \"low\"}\n```"
	parsed := services.ParseModelResponse(raw)
	if parsed.DoseUnits == nil || *parsed.DoseUnits != 6 {
		t.Fatalf("expected fenced JSON parsed, got %v", parsed.DoseUnits)
	}
}

func TestParseFallbackExtractsDose(t *testing.T) {
	raw := `The model rambled instead of answering. Somewhere it said "doseUnits": 7.5 and then trailed off`
	parsed := services.ParseModelResponse(raw)
	if parsed.DoseUnits == nil || *parsed.DoseUnits != 7.5 {
		t.Fatalf("expected regex-extracted dose 7.5, got %v", parsed.DoseUnits)
	}
	if parsed.Confidence != domain.ConfidenceLow {
		t.Fatalf("fallback must be low confidence, got %q", parsed.Confidence)
	}
	if !strings.Contains(parsed.SafetyNotes, "Unable to parse") {
		t.Fatalf("expected parse-failure safety note, got %q", parsed.SafetyNotes)
	}
	if parsed.Reasoning != raw {
		t.Fatalf("fallback must carry the raw text as reasoning for review")
	}
}

func TestParseFallbackDefaultDose(t *testing.T) {
	parsed := services.ParseModelResponse("no structure here at all")
	if parsed.DoseUnits == nil || *parsed.DoseUnits != services.FallbackDoseUnits {
		t.Fatalf("expected default dose %v, got %v", services.FallbackDoseUnits, parsed.DoseUnits)
	}
	if parsed.Confidence != domain.ConfidenceLow {
		t.Fatalf("expected low confidence, got %q", parsed.Confidence)
	}
}

func TestFallbackRecommendationNamesError(t *testing.T) {
	parsed := services.FallbackRecommendation(errors.New("connection refused"))
	if parsed.DoseUnits == nil || *parsed.DoseUnits != services.FallbackDoseUnits {
		t.Fatalf("expected conservative default dose, got %v", parsed.DoseUnits)
	}
	if !strings.Contains(parsed.Reasoning, "connection refused") {
		t.Fatalf("fallback reasoning must name the underlying error, got %q", parsed.Reasoning)
	}
	if parsed.Confidence != domain.ConfidenceLow {
		t.Fatalf("expected low confidence, got %q", parsed.Confidence)
	}
	if !strings.Contains(parsed.RecommendedMonitoring, "healthcare provider") {
		t.Fatalf("expected provider-contact monitoring advice, got %q", parsed.RecommendedMonitoring)
	}
}
