package repository

import (
	"context"
	"errors"

	"github.com/dosewise/dosewise/internal/apperrors"
	"github.com/dosewise/dosewise/internal/database"
	"github.com/dosewise/dosewise/internal/domain"
	"gorm.io/gorm"
)

// UserRepository handles caregiver account lookups
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID gets a caregiver by ID
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var user database.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return &domain.User{
		ID:             user.ID,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
		Email:          user.Email,
		Name:           user.Name,
		TelegramChatID: user.TelegramChatID,
	}, nil
}
