package domain

import (
	"fmt"
	"time"
)

// DiabetesType classifies a patient's diagnosis.
type DiabetesType string

const (
	DiabetesType1       DiabetesType = "type1"
	DiabetesType2       DiabetesType = "type2"
	DiabetesGestational DiabetesType = "gestational"
	DiabetesOther       DiabetesType = "other"
)

// ActivityLevel describes a patient's typical physical activity.
type ActivityLevel string

const (
	ActivityLow      ActivityLevel = "Low"
	ActivityModerate ActivityLevel = "Moderate"
	ActivityHigh     ActivityLevel = "High"
)

// EntryType discriminates the three kinds of caregiver-recorded events.
type EntryType string

const (
	EntryGlucose EntryType = "glucose"
	EntryMeal    EntryType = "meal"
	EntryInsulin EntryType = "insulin"
)

// Confidence grades how much trust a recommendation deserves.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// User represents a caregiver account. Authentication and session issuance
// live outside this service; the pipeline only needs the identity for
// ownership checks and the optional Telegram chat for notifications.
type User struct {
	ID             uint
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Email          string
	Name           string
	TelegramChatID int64
}

// Medication is one item of a patient's usual medication list.
type Medication struct {
	Brand      string `json:"brand"`
	Dosage     string `json:"dosage"`
	TimingNote string `json:"timingNote"`
}

// Patient is a person a caregiver logs entries for.
//
// Medications may be a []Medication or a JSON-encoded string depending on
// which persistence backend loaded it; the prompt builder owns the single
// normalization step for both shapes.
type Patient struct {
	ID            uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
	OwnerID       uint
	Name          string
	DateOfBirth   time.Time
	DiabetesType  DiabetesType
	Lifestyle     string
	ActivityLevel ActivityLevel
	Medications   any
}

// AgeAt derives the patient's age in full years at the given instant.
func (p *Patient) AgeAt(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Entry is a single caregiver-recorded event for a patient. OccurredAt is
// caregiver-supplied and may be backdated; CreatedAt is system-assigned.
type Entry struct {
	ID              uint      `json:"id"`
	PatientID       uint      `json:"patientId"`
	Type            EntryType `json:"type"`
	Value           string    `json:"value"`
	Units           string    `json:"units,omitempty"`
	MedicationBrand string    `json:"medicationBrand,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Validate enforces the per-kind field rules at the boundary: glucose and
// insulin carry units, meals do not, and only insulin carries a medication
// brand.
func (e *Entry) Validate() error {
	switch e.Type {
	case EntryGlucose:
		if e.Units == "" {
			return fmt.Errorf("glucose entry requires units")
		}
		if e.MedicationBrand != "" {
			return fmt.Errorf("glucose entry must not carry a medication brand")
		}
	case EntryInsulin:
		if e.Units == "" {
			return fmt.Errorf("insulin entry requires units")
		}
	case EntryMeal:
		if e.Units != "" {
			return fmt.Errorf("meal entry must not carry units")
		}
		if e.MedicationBrand != "" {
			return fmt.Errorf("meal entry must not carry a medication brand")
		}
	default:
		return fmt.Errorf("unknown entry type %q", e.Type)
	}
	if e.Value == "" {
		return fmt.Errorf("entry requires a value")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("entry requires an occurred-at timestamp")
	}
	return nil
}

// Recommendation is a persisted AI-generated dosing suggestion. Append-only:
// it always carries the exact prompt and raw response it was derived from.
type Recommendation struct {
	ID                    uint       `json:"id"`
	PatientID             uint       `json:"patientId"`
	Prompt                string     `json:"prompt"`
	RawResponse           string     `json:"rawResponse"`
	DoseUnits             *float64   `json:"doseUnits,omitempty"`
	MedicationName        string     `json:"medicationName,omitempty"`
	Reasoning             string     `json:"reasoning,omitempty"`
	SafetyNotes           string     `json:"safetyNotes,omitempty"`
	Confidence            Confidence `json:"confidence,omitempty"`
	RecommendedMonitoring string     `json:"recommendedMonitoring,omitempty"`
	TargetTime            time.Time  `json:"-"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// GlucoseTargets is the fixed target-range configuration rendered into
// prompts, in mg/dL.
type GlucoseTargets struct {
	TargetMin float64
	TargetMax float64
	VeryLow   float64
	Low       float64
	High      float64
	VeryHigh  float64
}

// DefaultGlucoseTargets returns the standard adult band.
func DefaultGlucoseTargets() GlucoseTargets {
	return GlucoseTargets{
		TargetMin: 100,
		TargetMax: 150,
		VeryLow:   70,
		Low:       80,
		High:      180,
		VeryHigh:  250,
	}
}
