package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dosewise/dosewise/internal/domain"
)

// FallbackDoseUnits is the conservative default dose used whenever the
// model's answer is missing or unusable. Deliberately small: a cautious
// suggestion is safer than no suggestion.
const FallbackDoseUnits = 8.0

// ParsedRecommendation is the typed result of parsing a model response.
// All fields are best-effort; the parser always produces something usable.
type ParsedRecommendation struct {
	DoseUnits             *float64
	MedicationName        string
	Reasoning             string
	SafetyNotes           string
	Confidence            domain.Confidence
	RecommendedMonitoring string
}

var doseUnitsPattern = regexp.MustCompile(`"doseUnits"\s*:\s*"?(\d+(?:\.\d+)?)`)

// ParseModelResponse parses the raw model output. On a valid JSON object it
// coerces each field to its expected type; on malformed output it falls
// back to regex dose extraction, marks the result low-confidence and
// carries the full raw text as reasoning for human review.
func ParseModelResponse(raw string) *ParsedRecommendation {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return fallbackParse(raw)
	}

	var payload struct {
		DoseUnits             any    `json:"doseUnits"`
		MedicationName        string `json:"medicationName"`
		Reasoning             string `json:"reasoning"`
		SafetyNotes           string `json:"safetyNotes"`
		Confidence            string `json:"confidence"`
		RecommendedMonitoring string `json:"recommendedMonitoring"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return fallbackParse(raw)
	}

	return &ParsedRecommendation{
		DoseUnits:             coerceDose(payload.DoseUnits),
		MedicationName:        payload.MedicationName,
		Reasoning:             payload.Reasoning,
		SafetyNotes:           payload.SafetyNotes,
		Confidence:            normalizeConfidence(payload.Confidence),
		RecommendedMonitoring: payload.RecommendedMonitoring,
	}
}

// FallbackRecommendation is the canned conservative answer used when the
// model provider call itself failed. The reasoning names the underlying
// error so the failure is never silent.
func FallbackRecommendation(err error) *ParsedRecommendation {
	dose := FallbackDoseUnits
	return &ParsedRecommendation{
		DoseUnits: &dose,
		Reasoning: fmt.Sprintf("The AI model call failed (%v). This is a conservative default dose, not a data-driven recommendation.", err),
		SafetyNotes: "Automatic recommendation was unavailable. Do not rely on this dose without independent verification.",
		Confidence:            domain.ConfidenceLow,
		RecommendedMonitoring: "Contact a healthcare provider immediately before administering insulin.",
	}
}

func fallbackParse(raw string) *ParsedRecommendation {
	dose := FallbackDoseUnits
	if m := doseUnitsPattern.FindStringSubmatch(raw); m != nil {
		if parsed, err := strconv.ParseFloat(m[1], 64); err == nil {
			dose = parsed
		}
	}
	return &ParsedRecommendation{
		DoseUnits:   &dose,
		Reasoning:   raw,
		SafetyNotes: "Unable to parse structured response from the model.",
		Confidence:  domain.ConfidenceLow,
	}
}

func coerceDose(v any) *float64 {
	switch d := v.(type) {
	case float64:
		return &d
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(d), 64); err == nil {
			return &parsed
		}
	case json.Number:
		if parsed, err := d.Float64(); err == nil {
			return &parsed
		}
	}
	return nil
}

func normalizeConfidence(v string) domain.Confidence {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high":
		return domain.ConfidenceHigh
	case "medium":
		return domain.ConfidenceMedium
	case "low":
		return domain.ConfidenceLow
	default:
		return ""
	}
}

// extractJSON pulls the outermost JSON object out of the given string,
// tolerating code fences or stray text around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
