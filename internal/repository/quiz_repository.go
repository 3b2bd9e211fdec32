package repository

import (
	"context"
	"fmt"

	"study_buddy_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

// FindByIDAndUserID 只返回属于该用户的测验
func (r *QuizRepository) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&quiz).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("quiz %s", id))
	}
	return &quiz, nil
}

func (r *QuizRepository) ListByUser(ctx context.Context, userID string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}
