package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dosewise/dosewise/internal/domain"
	"github.com/dosewise/dosewise/internal/utils"
)

// PromptBuilder renders patient profile, target time, categorized history
// and the medication pattern analysis into the single structured prompt
// sent to the model.
type PromptBuilder struct {
	targets domain.GlucoseTargets
}

// NewPromptBuilder creates a prompt builder with the given glucose target
// configuration.
func NewPromptBuilder(targets domain.GlucoseTargets) *PromptBuilder {
	return &PromptBuilder{targets: targets}
}

// PromptInput carries everything the builder needs for one prompt. Recent
// and Older must each be sorted newest first.
type PromptInput struct {
	Patient         *domain.Patient
	Recent          []domain.Entry // last 24 hours
	Older           []domain.Entry // 24-72 hours
	TargetTime      time.Time
	Location        *time.Location
	PatternAnalysis string
	Now             time.Time
}

// NormalizeMedications converts whatever shape the persistence layer stored
// the medications list in into a typed slice: parse if string, pass through
// if already a list, empty list on any failure. This is the single
// normalization point; nothing else in the pipeline inspects the raw value.
func NormalizeMedications(raw any) []domain.Medication {
	switch v := raw.(type) {
	case nil:
		return nil
	case []domain.Medication:
		return v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		var meds []domain.Medication
		if err := json.Unmarshal([]byte(v), &meds); err != nil {
			return nil
		}
		return meds
	case []byte:
		var meds []domain.Medication
		if err := json.Unmarshal(v, &meds); err != nil {
			return nil
		}
		return meds
	default:
		// Backends that decode JSON columns eagerly hand us []any or
		// similar; a marshal round-trip covers those without enumerating
		// shapes.
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var meds []domain.Medication
		if err := json.Unmarshal(data, &meds); err != nil {
			return nil
		}
		return meds
	}
}

// staleGlucoseReading reports whether the most recent glucose reading
// predates the most recent insulin dose. Such a reading does not reflect
// the patient's post-dose state and must not drive dose magnitude.
func staleGlucoseReading(recent, older []domain.Entry) bool {
	var lastGlucose, lastInsulin *domain.Entry
	for _, entries := range [][]domain.Entry{recent, older} {
		for i := range entries {
			e := &entries[i]
			switch e.Type {
			case domain.EntryGlucose:
				if lastGlucose == nil || e.OccurredAt.After(lastGlucose.OccurredAt) {
					lastGlucose = e
				}
			case domain.EntryInsulin:
				if lastInsulin == nil || e.OccurredAt.After(lastInsulin.OccurredAt) {
					lastInsulin = e
				}
			}
		}
	}
	if lastGlucose == nil || lastInsulin == nil {
		return false
	}
	return lastGlucose.OccurredAt.Before(lastInsulin.OccurredAt)
}

// Build renders the complete prompt. Section order is part of the contract:
// task statement, prioritized instructions, patient info, target time,
// recent then older history, pattern analysis, response schema, worked
// examples, closing safety reminder.
func (b *PromptBuilder) Build(in PromptInput) string {
	var sb strings.Builder

	sb.WriteString("You are an experienced endocrinology assistant supporting a trained caregiver. ")
	sb.WriteString("Your task is to recommend an insulin dose for the patient described below, ")
	sb.WriteString("to be administered at the target time, based on the recorded history.\n\n")

	b.writeInstructions(&sb, in)
	b.writePatientInfo(&sb, in)
	b.writeTargetTime(&sb, in)
	b.writeHistory(&sb, in)
	b.writePatternAnalysis(&sb, in)
	b.writeResponseFormat(&sb)
	b.writeExamples(&sb)

	sb.WriteString("FINAL SAFETY REMINDER:\n")
	sb.WriteString("This recommendation supports, but never replaces, the judgment of the caregiver ")
	sb.WriteString("and the patient's healthcare provider. When the data is ambiguous, always prefer ")
	sb.WriteString("the more conservative dose and say so in your safety notes.\n")

	return sb.String()
}

func (b *PromptBuilder) writeInstructions(sb *strings.Builder, in PromptInput) {
	sb.WriteString("INSTRUCTIONS (in priority order):\n")
	sb.WriteString("1. Weigh the most recent glucose reading and its trend above all other factors.\n")
	sb.WriteString("2. Account for meal timing: recent or upcoming meals change insulin demand.\n")
	sb.WriteString("3. Consider how effective prior doses were, judged by the glucose readings that followed them.\n")
	sb.WriteString("4. Factor in the patient's diabetes type and overall health profile.\n")
	sb.WriteString("5. Consider the time remaining until the target administration time.\n")
	sb.WriteString("6. Adjust for the patient's lifestyle and activity level.\n")
	sb.WriteString("7. When in doubt, choose the safer, lower dose and flag the uncertainty.\n")
	sb.WriteString("8. Default to the insulin brand this patient historically uses at the target time of day ")
	sb.WriteString("(see MEDICATION PATTERNS below). Recommend a different brand only for a compelling ")
	sb.WriteString("clinical reason, and state that reason explicitly.\n")

	if staleGlucoseReading(in.Recent, in.Older) {
		sb.WriteString("\nIMPORTANT - STALE GLUCOSE READING:\n")
		sb.WriteString("The most recent glucose reading was taken BEFORE the most recent insulin dose, ")
		sb.WriteString("so it does not reflect the patient's current post-dose state. Treat that reading ")
		sb.WriteString("as stale: do not use it to size the dose. Fall back to trend and safety-based ")
		sb.WriteString("reasoning, and state clearly that a fresh glucose reading is needed before ")
		sb.WriteString("administration.\n")
	}
	sb.WriteString("\n")
}

func (b *PromptBuilder) writePatientInfo(sb *strings.Builder, in PromptInput) {
	p := in.Patient
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	sb.WriteString("PATIENT INFORMATION:\n")
	fmt.Fprintf(sb, "- Name: %s\n", p.Name)
	fmt.Fprintf(sb, "- Age: %d years\n", p.AgeAt(now))
	fmt.Fprintf(sb, "- Diabetes type: %s\n", p.DiabetesType)
	if p.ActivityLevel != "" {
		fmt.Fprintf(sb, "- Activity level: %s\n", p.ActivityLevel)
	}
	if p.Lifestyle != "" {
		fmt.Fprintf(sb, "- Lifestyle: %s\n", p.Lifestyle)
	}

	meds := NormalizeMedications(p.Medications)
	if len(meds) > 0 {
		sb.WriteString("- Usual medications:\n")
		for _, m := range meds {
			fmt.Fprintf(sb, "  * %s", m.Brand)
			if m.Dosage != "" {
				fmt.Fprintf(sb, " - %s", m.Dosage)
			}
			if m.TimingNote != "" {
				fmt.Fprintf(sb, " (%s)", m.TimingNote)
			}
			sb.WriteString("\n")
		}
	}

	fmt.Fprintf(sb, "- Glucose targets: %.0f-%.0f mg/dL (very low below %.0f, low below %.0f, high above %.0f, very high above %.0f)\n\n",
		b.targets.TargetMin, b.targets.TargetMax, b.targets.VeryLow, b.targets.Low, b.targets.High, b.targets.VeryHigh)
}

func (b *PromptBuilder) writeTargetTime(sb *strings.Builder, in PromptInput) {
	sb.WriteString("TARGET ADMINISTRATION TIME:\n")
	fmt.Fprintf(sb, "%s (local time)\n\n", utils.LocalTimeString(in.TargetTime, in.Location))
}

func (b *PromptBuilder) writeHistory(sb *strings.Builder, in PromptInput) {
	sb.WriteString("RECENT HISTORY (LAST 24 HOURS, newest first):\n")
	if len(in.Recent) == 0 {
		sb.WriteString("(no entries)\n")
	}
	for _, e := range in.Recent {
		sb.WriteString(formatEntry(e, in.Location))
	}

	sb.WriteString("\nOLDER HISTORY (24-72 HOURS AGO, newest first):\n")
	if len(in.Older) == 0 {
		sb.WriteString("(no entries)\n")
	}
	for _, e := range in.Older {
		sb.WriteString(formatEntry(e, in.Location))
	}
	sb.WriteString("\n")
}

func formatEntry(e domain.Entry, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- [%s] %s", e.Type, e.Value)
	if e.Units != "" {
		fmt.Fprintf(&sb, " %s", e.Units)
	}
	if e.MedicationBrand != "" {
		fmt.Fprintf(&sb, " (%s)", e.MedicationBrand)
	}
	fmt.Fprintf(&sb, " at %s\n", utils.LocalTimeString(e.OccurredAt, loc))
	return sb.String()
}

func (b *PromptBuilder) writePatternAnalysis(sb *strings.Builder, in PromptInput) {
	sb.WriteString("MEDICATION PATTERNS:\n")
	sb.WriteString(in.PatternAnalysis)
	sb.WriteString("\n\n")
}

func (b *PromptBuilder) writeResponseFormat(sb *strings.Builder) {
	sb.WriteString("CRITICAL JSON FORMAT REQUIREMENTS:\n")
	sb.WriteString("- Your response MUST be a single valid JSON object\n")
	sb.WriteString("- Do not include any markdown formatting or code fences\n")
	sb.WriteString("- Do not include any explanatory text before or after the JSON\n")
	sb.WriteString("- The JSON must have these exact fields:\n")
	sb.WriteString(`  {
    "doseUnits": 8.0,
    "medicationName": "brand the patient should use",
    "reasoning": "why this dose, referencing specific readings and times",
    "safetyNotes": "risks and checks before administering",
    "confidence": "low|medium|high",
    "recommendedMonitoring": "what to measure and when"
  }` + "\n\n")
}

func (b *PromptBuilder) writeExamples(sb *strings.Builder) {
	sb.WriteString("EXAMPLE OF A GOOD RESPONSE (specific, grounded in the data):\n")
	sb.WriteString(`{
    "doseUnits": 6,
    "medicationName": "Actrapid",
    "reasoning": "Glucose 165 mg/dL at 07:10 is above the 150 mg/dL target and trending up from 140 at 22:30 yesterday. The last comparable morning dose of 5 IU Actrapid brought glucose from 170 to 120 within 3 hours. A small increase to 6 IU accounts for the planned breakfast noted at 07:30.",
    "safetyNotes": "Verify no insulin was administered in the last 4 hours before giving this dose.",
    "confidence": "high",
    "recommendedMonitoring": "Re-check glucose 2 hours after administration and before the next meal."
  }` + "\n\n")

	sb.WriteString("EXAMPLE OF A POOR RESPONSE (vague, not grounded - do NOT answer like this):\n")
	sb.WriteString(`{
    "doseUnits": 10,
    "medicationName": "insulin",
    "reasoning": "The patient seems to need some insulin based on the readings.",
    "safetyNotes": "Be careful.",
    "confidence": "high",
    "recommendedMonitoring": "Monitor as usual."
  }` + "\n\n")
}
