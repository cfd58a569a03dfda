package domain

import (
	"context"
)

// UserStore loads caregiver accounts.
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*User, error)
}

// PatientStore loads patient profiles.
type PatientStore interface {
	FindByID(ctx context.Context, id uint) (*Patient, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]Patient, error)
}

// EntryStore loads caregiver-recorded entries.
type EntryStore interface {
	// ListByPatient returns all entries for a patient, newest first.
	ListByPatient(ctx context.Context, patientID uint) ([]Entry, error)
	// LastInsulinEntry returns the most recent insulin entry, or nil when
	// the patient has none.
	LastInsulinEntry(ctx context.Context, patientID uint) (*Entry, error)
	Create(ctx context.Context, entry *Entry) error
}

// RecommendationStore persists generated recommendations. Recommendations
// are append-only; there is no update.
type RecommendationStore interface {
	Create(ctx context.Context, rec *Recommendation) error
	ListByPatient(ctx context.Context, patientID uint) ([]Recommendation, error)
}
