package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/progress"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"study_buddy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxClockSkew 客户端提交的完成时间允许超前服务器的范围
const maxClockSkew = 5 * time.Minute

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	AttemptRepo  *repository.AttemptRepository
	QuizRepo     *repository.QuizRepository
	DailyGoals   *DailyGoalService

	settings atomic.Pointer[config.ProgressConfig]
	now      func() time.Time
}

func NewProgressService(
	cfg config.ProgressConfig,
	progressRepo *repository.ProgressRepository,
	attemptRepo *repository.AttemptRepository,
	quizRepo *repository.QuizRepository,
	dailyGoals *DailyGoalService,
) *ProgressService {
	s := &ProgressService{
		ProgressRepo: progressRepo,
		AttemptRepo:  attemptRepo,
		QuizRepo:     quizRepo,
		DailyGoals:   dailyGoals,
		now:          time.Now,
	}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig 热更新重试次数、时区等设置
func (s *ProgressService) UpdateConfig(cfg config.ProgressConfig) {
	s.settings.Store(&cfg)
}

func (s *ProgressService) config() config.ProgressConfig {
	return *s.settings.Load()
}

type SubmitAttemptRequest struct {
	Answers     []int      `json:"answers" binding:"required"`
	TimeSpent   int        `json:"timeSpent"` // 秒
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type SubmitAttemptResult struct {
	Attempt  model.QuizAttempt      `json:"attempt"`
	Progress model.LearningProgress `json:"progress"`
}

// Grade 统计与标准答案一致的作答数，-1 表示未作答
func Grade(quiz *model.Quiz, answers []int) (int, error) {
	if len(answers) != len(quiz.Questions) {
		return 0, util.NewValidationError("answers", "expected %d answers, got %d", len(quiz.Questions), len(answers))
	}
	score := 0
	for i, q := range quiz.Questions {
		a := answers[i]
		if a < -1 || a >= len(q.Options) {
			return 0, util.NewValidationError("answers", "answer %d for question %d is out of range", a, i+1)
		}
		if a == q.CorrectAnswer {
			score++
		}
	}
	return score, nil
}

// SubmitAttempt 判分后在同一事务内写入作答、更新学习进度和当日目标。
// 版本冲突时整体重试，超过 max_retries 返回 util.ErrConflict。
func (s *ProgressService) SubmitAttempt(ctx context.Context, userID, quizID string, req SubmitAttemptRequest) (*SubmitAttemptResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressService.SubmitAttempt")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("quiz_id", quizID))

	quiz, err := s.QuizRepo.FindByIDAndUserID(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	score, err := Grade(quiz, req.Answers)
	if err != nil {
		return nil, err
	}

	cfg := s.config()
	loc := cfg.Location()
	now := s.now().In(loc)
	completedAt := now
	if req.CompletedAt != nil {
		completedAt = req.CompletedAt.In(loc)
		if completedAt.After(now.Add(maxClockSkew)) {
			return nil, util.NewValidationError("completedAt", "is in the future")
		}
	}

	attempt := model.QuizAttempt{
		QuizID:         quiz.ID,
		UserID:         userID,
		Answers:        append([]int(nil), req.Answers...),
		Score:          score,
		TotalQuestions: len(quiz.Questions),
		CompletedAt:    completedAt,
		TimeSpent:      req.TimeSpent,
	}
	if err := progress.ValidateAttempt(attempt); err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for try := 1; ; try++ {
		var stored model.QuizAttempt
		saved, err := s.ProgressRepo.Update(ctx, userID, func(tx *gorm.DB, current model.LearningProgress) (model.LearningProgress, error) {
			stored = attempt
			if _, err := s.AttemptRepo.Append(ctx, tx, &stored); err != nil {
				return current, err
			}

			next, err := progress.Ingest(stored, current)
			if err != nil {
				return current, err
			}
			next = progress.ApplyTopicResults(next, *quiz, stored.Answers, stored.CompletedAt)
			next = progress.RefreshClassification(next)

			if s.DailyGoals != nil {
				if err := s.DailyGoals.RecordAttempt(ctx, tx, userID, stored.CompletedAt, stored.TimeSpent); err != nil {
					return current, err
				}
			}
			return next, nil
		})
		if err == nil {
			monitoring.AttemptsIngested.Inc()
			logger.FromContext(ctx).Info("Quiz attempt ingested",
				zap.String("user_id", userID),
				zap.String("quiz_id", quiz.ID),
				zap.String("attempt_id", stored.ID),
				zap.Int("score", stored.Score),
				zap.Int("streak_days", saved.StreakDays),
			)
			return &SubmitAttemptResult{Attempt: stored, Progress: *saved}, nil
		}

		if !errors.Is(err, util.ErrConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if try >= maxRetries {
			monitoring.ProgressConflicts.WithLabelValues("exhausted").Inc()
			logger.FromContext(ctx).Warn("Progress update retries exhausted",
				zap.String("user_id", userID),
				zap.Int("attempts", try),
				zap.Error(err),
			)
			span.SetStatus(codes.Error, "conflict")
			return nil, err
		}
		monitoring.ProgressConflicts.WithLabelValues("retried").Inc()
		logger.FromContext(ctx).Debug("Progress update conflict, retrying", zap.String("user_id", userID), zap.Int("attempt", try))
	}
}

// GetProgress 首次访问时创建零值记录
func (s *ProgressService) GetProgress(ctx context.Context, userID string) (*model.LearningProgress, error) {
	return s.ProgressRepo.GetOrCreate(ctx, userID)
}
