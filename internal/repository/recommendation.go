package repository

import (
	"context"

	"github.com/dosewise/dosewise/internal/apperrors"
	"github.com/dosewise/dosewise/internal/database"
	"github.com/dosewise/dosewise/internal/domain"
	"gorm.io/gorm"
)

// RecommendationRepository handles recommendation persistence.
// Recommendations are append-only; there is no update path.
type RecommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Create persists a new recommendation
func (r *RecommendationRepository) Create(ctx context.Context, rec *domain.Recommendation) error {
	record := &database.Recommendation{
		PatientID:             rec.PatientID,
		Prompt:                rec.Prompt,
		RawResponse:           rec.RawResponse,
		DoseUnits:             rec.DoseUnits,
		MedicationName:        rec.MedicationName,
		Reasoning:             rec.Reasoning,
		SafetyNotes:           rec.SafetyNotes,
		Confidence:            string(rec.Confidence),
		RecommendedMonitoring: rec.RecommendedMonitoring,
		TargetTime:            rec.TargetTime,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.NewDatabaseError(err)
	}

	rec.ID = record.ID
	rec.CreatedAt = record.CreatedAt
	return nil
}

// ListByPatient returns all recommendations for a patient, newest first
func (r *RecommendationRepository) ListByPatient(ctx context.Context, patientID uint) ([]domain.Recommendation, error) {
	var records []database.Recommendation
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	result := make([]domain.Recommendation, 0, len(records))
	for i := range records {
		rec := records[i]
		result = append(result, domain.Recommendation{
			ID:                    rec.ID,
			PatientID:             rec.PatientID,
			Prompt:                rec.Prompt,
			RawResponse:           rec.RawResponse,
			DoseUnits:             rec.DoseUnits,
			MedicationName:        rec.MedicationName,
			Reasoning:             rec.Reasoning,
			SafetyNotes:           rec.SafetyNotes,
			Confidence:            domain.Confidence(rec.Confidence),
			RecommendedMonitoring: rec.RecommendedMonitoring,
			TargetTime:            rec.TargetTime,
			CreatedAt:             rec.CreatedAt,
		})
	}
	return result, nil
}
