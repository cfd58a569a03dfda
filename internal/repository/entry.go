package repository

import (
	"context"
	"errors"

	"github.com/dosewise/dosewise/internal/apperrors"
	"github.com/dosewise/dosewise/internal/database"
	"github.com/dosewise/dosewise/internal/domain"
	"gorm.io/gorm"
)

// EntryRepository handles entry data operations
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// ListByPatient returns all entries for a patient, newest first
func (r *EntryRepository) ListByPatient(ctx context.Context, patientID uint) ([]domain.Entry, error) {
	var entries []database.Entry
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("occurred_at DESC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	result := make([]domain.Entry, 0, len(entries))
	for i := range entries {
		result = append(result, *entryToDomain(&entries[i]))
	}
	return result, nil
}

// LastInsulinEntry returns the most recent insulin entry, or nil when the
// patient has none
func (r *EntryRepository) LastInsulinEntry(ctx context.Context, patientID uint) (*domain.Entry, error) {
	var entry database.Entry
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND type = ?", patientID, string(domain.EntryInsulin)).
		Order("occurred_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return entryToDomain(&entry), nil
}

// Create validates and persists a new entry
func (r *EntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	if err := entry.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	record := &database.Entry{
		PatientID:       entry.PatientID,
		Type:            string(entry.Type),
		Value:           entry.Value,
		Units:           entry.Units,
		MedicationBrand: entry.MedicationBrand,
		OccurredAt:      entry.OccurredAt,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.NewDatabaseError(err)
	}

	entry.ID = record.ID
	entry.CreatedAt = record.CreatedAt
	return nil
}

func entryToDomain(e *database.Entry) *domain.Entry {
	return &domain.Entry{
		ID:              e.ID,
		PatientID:       e.PatientID,
		Type:            domain.EntryType(e.Type),
		Value:           e.Value,
		Units:           e.Units,
		MedicationBrand: e.MedicationBrand,
		OccurredAt:      e.OccurredAt,
		CreatedAt:       e.CreatedAt,
	}
}
