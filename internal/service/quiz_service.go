package service

import (
	"context"
	"fmt"
	"strings"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	DefaultQuestionCount = 5
	MaxQuestionCount     = 20
	// maxSourceContent 保存到测验上的原文上限
	maxSourceContent = 20000
)

type QuizService struct {
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.AttemptRepository
	Materials   *MaterialService
	Generator   StudyGenerator
}

func NewQuizService(
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.AttemptRepository,
	materials *MaterialService,
	generator StudyGenerator,
) *QuizService {
	return &QuizService{
		QuizRepo:    quizRepo,
		AttemptRepo: attemptRepo,
		Materials:   materials,
		Generator:   generator,
	}
}

type CreateQuizRequest struct {
	Title      string               `json:"title" binding:"required"`
	Subject    string               `json:"subject"`
	Difficulty model.Difficulty     `json:"difficulty"`
	Questions  []model.QuizQuestion `json:"questions" binding:"required"`
}

type GenerateQuizRequest struct {
	MaterialID string           `json:"materialId"`
	Content    string           `json:"content"`
	Title      string           `json:"title"`
	Subject    string           `json:"subject"`
	Count      int              `json:"count"`
	Difficulty model.Difficulty `json:"difficulty"`
}

func normalizeDifficulty(d model.Difficulty) (model.Difficulty, error) {
	switch d {
	case "":
		return model.DifficultyMedium, nil
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		return d, nil
	}
	return "", util.NewValidationError("difficulty", "unsupported difficulty %q", d)
}

// ValidateQuestions 每题至少两个选项，标准答案在选项范围内；缺失的 ID 按序号补齐
func ValidateQuestions(questions []model.QuizQuestion) error {
	if len(questions) == 0 {
		return util.NewValidationError("questions", "at least one question is required")
	}
	for i := range questions {
		q := &questions[i]
		if strings.TrimSpace(q.Question) == "" {
			return util.NewValidationError("questions", "question %d has no text", i+1)
		}
		if len(q.Options) < 2 {
			return util.NewValidationError("questions", "question %d needs at least 2 options", i+1)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return util.NewValidationError("questions", "question %d has correctAnswer %d out of range", i+1, q.CorrectAnswer)
		}
		q.Topic = strings.TrimSpace(q.Topic)
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
	}
	return nil
}

func (s *QuizService) CreateQuiz(ctx context.Context, userID string, req CreateQuizRequest) (*model.Quiz, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, util.NewValidationError("title", "is required")
	}
	difficulty, err := normalizeDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}
	questions := append([]model.QuizQuestion(nil), req.Questions...)
	if err := ValidateQuestions(questions); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		UserID:     userID,
		Title:      strings.TrimSpace(req.Title),
		Subject:    req.Subject,
		Difficulty: difficulty,
		Questions:  questions,
	}
	if err := s.QuizRepo.Create(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// GenerateQuiz 从资料或直接提交的文本生成测验，生成结果不合法时视为上游失败
func (s *QuizService) GenerateQuiz(ctx context.Context, userID string, req GenerateQuizRequest) (*model.Quiz, error) {
	ctx, span := tracing.StartSpan(ctx, "QuizService.GenerateQuiz")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	difficulty, err := normalizeDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}
	count := req.Count
	if count == 0 {
		count = DefaultQuestionCount
	}
	if count < 1 || count > MaxQuestionCount {
		return nil, util.NewValidationError("count", "must be between 1 and %d, got %d", MaxQuestionCount, count)
	}

	content := req.Content
	if req.MaterialID != "" {
		if s.Materials == nil {
			return nil, util.NewValidationError("materialId", "materials are not available")
		}
		content, err = s.Materials.Content(ctx, userID, req.MaterialID)
		if err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil, util.NewValidationError("content", "materialId or content is required")
	}

	questions, err := s.Generator.GenerateQuizQuestions(ctx, QuizGenerationInput{
		Content:    content,
		Count:      count,
		Difficulty: difficulty,
		Subject:    req.Subject,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := ValidateQuestions(questions); err != nil {
		return nil, util.Upstream("ai", err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Generated Quiz"
		if req.Subject != "" {
			title = req.Subject + " Quiz"
		}
	}
	if len(content) > maxSourceContent {
		content = strings.ToValidUTF8(content[:maxSourceContent], "")
	}

	quiz := &model.Quiz{
		UserID:        userID,
		Title:         title,
		Subject:       req.Subject,
		Difficulty:    difficulty,
		SourceContent: content,
		Questions:     questions,
	}
	if err := s.QuizRepo.Create(ctx, quiz); err != nil {
		return nil, err
	}

	logger.Log.Info("Quiz generated",
		zap.String("user_id", userID),
		zap.String("quiz_id", quiz.ID),
		zap.Int("questions", len(questions)),
	)
	return quiz, nil
}

func (s *QuizService) ListQuizzes(ctx context.Context, userID string) ([]model.Quiz, error) {
	return s.QuizRepo.ListByUser(ctx, userID)
}

func (s *QuizService) GetQuiz(ctx context.Context, userID, quizID string) (*model.Quiz, error) {
	return s.QuizRepo.FindByIDAndUserID(ctx, quizID, userID)
}

// ListAttempts 指定 quizID 时返回该测验的全部作答
func (s *QuizService) ListAttempts(ctx context.Context, userID, quizID string) ([]model.QuizAttempt, error) {
	if quizID != "" {
		if _, err := s.QuizRepo.FindByIDAndUserID(ctx, quizID, userID); err != nil {
			return nil, err
		}
	}
	return s.AttemptRepo.ListByUser(ctx, userID, quizID, 0)
}
