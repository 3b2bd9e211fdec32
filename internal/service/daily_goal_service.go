package service

import (
	"context"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/progress"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DailyGoalService struct {
	Repo *repository.DailyGoalRepository
}

func NewDailyGoalService(repo *repository.DailyGoalRepository) *DailyGoalService {
	return &DailyGoalService{Repo: repo}
}

type SaveDailyGoalRequest struct {
	TargetStudyTime int      `json:"targetStudyTime"`
	TargetQuizzes   int      `json:"targetQuizzes"`
	Topics          []string `json:"topics"`
}

func (s *DailyGoalService) GetDailyGoal(ctx context.Context, userID, date string) (*model.DailyGoal, error) {
	if _, err := util.ParseDate(date, time.UTC); err != nil {
		return nil, err
	}
	return s.Repo.Find(ctx, userID, date)
}

// SaveDailyGoal 设置目标值，保留当天已累计的实际数据
func (s *DailyGoalService) SaveDailyGoal(ctx context.Context, userID, date string, req SaveDailyGoalRequest) (*model.DailyGoal, error) {
	if _, err := util.ParseDate(date, time.UTC); err != nil {
		return nil, err
	}
	if req.TargetStudyTime < 0 {
		return nil, util.NewValidationError("targetStudyTime", "must not be negative, got %d", req.TargetStudyTime)
	}
	if req.TargetQuizzes < 0 {
		return nil, util.NewValidationError("targetQuizzes", "must not be negative, got %d", req.TargetQuizzes)
	}

	if req.Topics == nil {
		req.Topics = []string{}
	}
	return s.Repo.SaveTargets(ctx, &model.DailyGoal{
		UserID:          userID,
		Date:            date,
		TargetStudyTime: req.TargetStudyTime,
		TargetQuizzes:   req.TargetQuizzes,
		Topics:          req.Topics,
	})
}

// RecordAttempt 把一次作答计入 completedAt 当天的目标，没有目标时忽略
func (s *DailyGoalService) RecordAttempt(ctx context.Context, tx *gorm.DB, userID string, completedAt time.Time, timeSpentSeconds int) error {
	date := completedAt.Format(util.DateFormat)
	ok, err := s.Repo.AddAttempt(ctx, tx, userID, date, progress.SecondsToMinutes(timeSpentSeconds))
	if err != nil || !ok {
		return err
	}
	_, err = s.Repo.MarkReached(ctx, tx, userID, date)
	return err
}

// CloseDay 将指定日期所有已达标的目标标记为完成
func (s *DailyGoalService) CloseDay(ctx context.Context, date string) (int64, error) {
	n, err := s.Repo.MarkReached(ctx, nil, "", date)
	if err != nil {
		logger.Log.Error("Failed to close daily goals", zap.String("date", date), zap.Error(err))
		return 0, err
	}
	monitoring.DailyGoalsClosed.Add(float64(n))
	logger.Log.Info("Daily goals closed", zap.String("date", date), zap.Int64("completed", n))
	return n, nil
}
