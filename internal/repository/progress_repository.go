package repository

import (
	"context"
	"fmt"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressMutator 根据当前记录计算下一份记录，tx 可用于同一事务内的其他写入
type ProgressMutator func(tx *gorm.DB, current model.LearningProgress) (model.LearningProgress, error)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID string) (*model.LearningProgress, error) {
	var p model.LearningProgress
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("progress for user %s", userID))
	}
	return &p, nil
}

// GetOrCreate 首次访问时插入零值记录，并发插入由主键冲突忽略
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID string) (*model.LearningProgress, error) {
	if err := r.ensure(r.DB.WithContext(ctx), userID); err != nil {
		return nil, err
	}
	return r.Get(ctx, userID)
}

// Set 无条件覆盖，仅用于管理操作
func (r *ProgressRepository) Set(ctx context.Context, p *model.LearningProgress) error {
	p.Version++
	return r.DB.WithContext(ctx).Save(p).Error
}

// Update 读-改-写：事务内加行锁读取，调用 fn，然后按版本号条件写回。
// 版本号不一致时返回 util.ErrConflict，事务整体回滚。
func (r *ProgressRepository) Update(ctx context.Context, userID string, fn ProgressMutator) (*model.LearningProgress, error) {
	var saved model.LearningProgress
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensure(tx, userID); err != nil {
			return err
		}

		var current model.LearningProgress
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&current).Error; err != nil {
			return translate(err, fmt.Sprintf("progress for user %s", userID))
		}

		next, err := fn(tx, current.Clone())
		if err != nil {
			return err
		}

		next.UserID = userID
		next.Version = current.Version + 1
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now()

		result := tx.Model(&model.LearningProgress{}).
			Where("user_id = ? AND version = ?", userID, current.Version).
			Updates(map[string]interface{}{
				"topics":              next.Topics,
				"total_quizzes_taken": next.TotalQuizzesTaken,
				"average_score":       next.AverageScore,
				"streak_days":         next.StreakDays,
				"last_study_date":     next.LastStudyDate,
				"study_time_total":    next.StudyTimeTotal,
				"weak_topics":         next.WeakTopics,
				"strong_topics":       next.StrongTopics,
				"version":             next.Version,
				"updated_at":          next.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("progress for user %s changed at version %d: %w", userID, current.Version, util.ErrConflict)
		}

		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ProgressRepository) ensure(db *gorm.DB, userID string) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(model.NewLearningProgress(userID)).Error
}
