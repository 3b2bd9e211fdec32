package repository

import (
	"context"
	"errors"
	"time"

	"study_buddy_backend/internal/model"

	"gorm.io/gorm"
)

// AttemptRepository 作答记录只追加不修改
type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Append 写入一次作答，tx 非空时加入调用方事务
func (r *AttemptRepository) Append(ctx context.Context, tx *gorm.DB, attempt *model.QuizAttempt) (string, error) {
	if err := conn(r.DB, tx).WithContext(ctx).Create(attempt).Error; err != nil {
		return "", err
	}
	return attempt.ID, nil
}

// ListByUser 按完成时间倒序；未指定 quizID 且 limit<=0 时最多返回 DefaultListLimit 条
func (r *AttemptRepository) ListByUser(ctx context.Context, userID, quizID string, limit int) ([]model.QuizAttempt, error) {
	query := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if quizID != "" {
		query = query.Where("quiz_id = ?", quizID)
	} else if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var attempts []model.QuizAttempt
	if err := query.Order("completed_at DESC").Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *AttemptRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ListSince 返回 since 之后完成的全部作答，不设上限，按完成时间倒序
func (r *AttemptRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND completed_at >= ?", userID, since).
		Order("completed_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// BestAttempt 百分比得分最高的一次作答，没有作答时返回 nil
func (r *AttemptRepository) BestAttempt(ctx context.Context, userID string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND total_questions > 0", userID).
		Order("score * 1.0 / total_questions DESC").
		Order("completed_at DESC").
		Take(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ExportPageSize 分页遍历作答时的单页大小
const ExportPageSize = 500

// ForEachPage 按完成时间倒序分页遍历用户的全部作答
func (r *AttemptRepository) ForEachPage(ctx context.Context, userID string, pageSize int, fn func([]model.QuizAttempt) error) error {
	if pageSize <= 0 {
		pageSize = ExportPageSize
	}
	for offset := 0; ; offset += pageSize {
		var page []model.QuizAttempt
		err := r.DB.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("completed_at DESC").
			Order("id").
			Offset(offset).
			Limit(pageSize).
			Find(&page).Error
		if err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
	}
}
