package repository

import (
	"context"
	"fmt"

	"study_buddy_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DailyGoalRepository struct {
	DB *gorm.DB
}

func NewDailyGoalRepository(db *gorm.DB) *DailyGoalRepository {
	return &DailyGoalRepository{DB: db}
}

func (r *DailyGoalRepository) Find(ctx context.Context, userID, date string) (*model.DailyGoal, error) {
	var goal model.DailyGoal
	err := r.DB.WithContext(ctx).Where("id = ?", model.DailyGoalID(userID, date)).First(&goal).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("daily goal %s for user %s", date, userID))
	}
	return &goal, nil
}

// SaveTargets 只写目标列，已累计的实际数据由数据库保留，随后按最新数据重算完成状态。
// 并发的 AddAttempt 不会被覆盖
func (r *DailyGoalRepository) SaveTargets(ctx context.Context, goal *model.DailyGoal) (*model.DailyGoal, error) {
	id := model.DailyGoalID(goal.UserID, goal.Date)
	targets := map[string]interface{}{
		"target_study_time": goal.TargetStudyTime,
		"target_quizzes":    goal.TargetQuizzes,
		"topics":            goal.Topics,
	}

	var saved model.DailyGoal
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updateTargets := func() (int64, error) {
			result := tx.Model(&model.DailyGoal{}).Where("id = ?", id).Updates(targets)
			return result.RowsAffected, result.Error
		}

		n, err := updateTargets()
		if err != nil {
			return err
		}
		if n == 0 {
			fresh := model.DailyGoal{
				ID:              id,
				UserID:          goal.UserID,
				Date:            goal.Date,
				TargetStudyTime: goal.TargetStudyTime,
				TargetQuizzes:   goal.TargetQuizzes,
				Topics:          goal.Topics,
			}
			created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
			if created.Error != nil {
				return created.Error
			}
			// 插入被并发创建抢先，改为更新
			if created.RowsAffected == 0 {
				if _, err := updateTargets(); err != nil {
					return err
				}
			}
		}

		err = tx.Model(&model.DailyGoal{}).Where("id = ?", id).
			Update("completed", gorm.Expr("actual_study_time >= target_study_time AND completed_quizzes >= target_quizzes")).Error
		if err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// AddAttempt 原子累加学习时长与测验数，返回是否存在该日目标
func (r *DailyGoalRepository) AddAttempt(ctx context.Context, tx *gorm.DB, userID, date string, minutes int) (bool, error) {
	db := conn(r.DB, tx).WithContext(ctx)
	result := db.Model(&model.DailyGoal{}).
		Where("id = ?", model.DailyGoalID(userID, date)).
		Updates(map[string]interface{}{
			"actual_study_time": gorm.Expr("actual_study_time + ?", minutes),
			"completed_quizzes": gorm.Expr("completed_quizzes + ?", 1),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkReached 将指定日期中已达标且未完成的目标标记为完成，userID 为空时处理全部用户
func (r *DailyGoalRepository) MarkReached(ctx context.Context, tx *gorm.DB, userID, date string) (int64, error) {
	query := conn(r.DB, tx).WithContext(ctx).Model(&model.DailyGoal{}).
		Where("date = ? AND completed = ?", date, false).
		Where("actual_study_time >= target_study_time AND completed_quizzes >= target_quizzes")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	result := query.Update("completed", true)
	return result.RowsAffected, result.Error
}
