package repository

import (
	"context"
	"fmt"

	"study_buddy_backend/internal/model"

	"gorm.io/gorm"
)

type MaterialRepository struct {
	DB *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{DB: db}
}

func (r *MaterialRepository) Create(ctx context.Context, m *model.StudyMaterial) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *MaterialRepository) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.StudyMaterial, error) {
	var m model.StudyMaterial
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&m).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("material %s", id))
	}
	return &m, nil
}

func (r *MaterialRepository) ListByUser(ctx context.Context, userID string) ([]model.StudyMaterial, error) {
	var materials []model.StudyMaterial
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&materials).Error
	return materials, err
}

func (r *MaterialRepository) Delete(ctx context.Context, id, userID string) error {
	result := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.StudyMaterial{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, fmt.Sprintf("material %s", id))
	}
	return nil
}
