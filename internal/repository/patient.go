package repository

import (
	"context"
	"errors"

	"github.com/dosewise/dosewise/internal/apperrors"
	"github.com/dosewise/dosewise/internal/database"
	"github.com/dosewise/dosewise/internal/domain"
	"gorm.io/gorm"
)

// PatientRepository handles patient data operations
type PatientRepository struct {
	db *gorm.DB
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// FindByID gets a patient by ID
func (r *PatientRepository) FindByID(ctx context.Context, id uint) (*domain.Patient, error) {
	var patient database.Patient
	if err := r.db.WithContext(ctx).First(&patient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPatientNotFound
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return patientToDomain(&patient), nil
}

// ListByOwner lists all patients belonging to a caregiver
func (r *PatientRepository) ListByOwner(ctx context.Context, ownerID uint) ([]domain.Patient, error) {
	var patients []database.Patient
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&patients).Error; err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	result := make([]domain.Patient, 0, len(patients))
	for i := range patients {
		result = append(result, *patientToDomain(&patients[i]))
	}
	return result, nil
}

func patientToDomain(p *database.Patient) *domain.Patient {
	return &domain.Patient{
		ID:            p.ID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		OwnerID:       p.OwnerID,
		Name:          p.Name,
		DateOfBirth:   p.DateOfBirth,
		DiabetesType:  domain.DiabetesType(p.DiabetesType),
		Lifestyle:     p.Lifestyle,
		ActivityLevel: domain.ActivityLevel(p.ActivityLevel),
		// Raw JSON-encoded text from the column; normalized by the prompt
		// builder, not here.
		Medications: p.Medications,
	}
}
