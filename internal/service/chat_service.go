package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// maxTutorHistory 每次对话携带的历史消息条数上限
	maxTutorHistory    = 20
	maxChatMessageLen  = 4000
	maxChatTitleLen    = 50
	chatAppendAttempts = 3
)

// ChatService 学习助手对话，只有生成成功的问答才会写入会话
type ChatService struct {
	Repo      *repository.ChatSessionRepository
	Materials *MaterialService
	Assistant StudyAssistant

	now func() time.Time
}

func NewChatService(repo *repository.ChatSessionRepository, materials *MaterialService, assistant StudyAssistant) *ChatService {
	return &ChatService{Repo: repo, Materials: materials, Assistant: assistant, now: time.Now}
}

type ChatMessageRequest struct {
	Message    string `json:"message" binding:"required"`
	MaterialID string `json:"materialId"`
	// Title Subject 仅在新建会话时使用
	Title   string `json:"title"`
	Subject string `json:"subject"`
}

type UpdateChatSessionRequest struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
}

type ChatReply struct {
	Session *model.ChatSession `json:"session"`
	Reply   model.ChatMessage  `json:"reply"`
}

// StartSession 新建会话并发送第一条消息，生成失败时不创建会话
func (s *ChatService) StartSession(ctx context.Context, userID string, req ChatMessageRequest) (*ChatReply, error) {
	ctx, span := tracing.StartSpan(ctx, "ChatService.StartSession")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	message, err := validateChatMessage(req.Message)
	if err != nil {
		return nil, err
	}
	question, answer, err := s.ask(ctx, userID, nil, message, req.MaterialID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = truncateRunes(message, maxChatTitleLen)
	}
	session := &model.ChatSession{
		UserID:   userID,
		Title:    title,
		Subject:  strings.TrimSpace(req.Subject),
		Messages: []model.ChatMessage{question, answer},
	}
	if err := s.Repo.Create(ctx, session); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Chat session started", zap.String("user_id", userID), zap.String("session_id", session.ID))
	return &ChatReply{Session: session, Reply: answer}, nil
}

// SendMessage 在已有会话中继续对话
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID string, req ChatMessageRequest) (*ChatReply, error) {
	ctx, span := tracing.StartSpan(ctx, "ChatService.SendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("session_id", sessionID))

	message, err := validateChatMessage(req.Message)
	if err != nil {
		return nil, err
	}
	session, err := s.Repo.FindByIDAndUserID(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	history := []model.ChatMessage(session.Messages)
	if len(history) > maxTutorHistory {
		history = history[len(history)-maxTutorHistory:]
	}
	question, answer, err := s.ask(ctx, userID, history, message, req.MaterialID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		saved, err := s.Repo.AppendMessages(ctx, sessionID, userID, question, answer)
		if err == nil {
			return &ChatReply{Session: saved, Reply: answer}, nil
		}
		if !errors.Is(err, util.ErrConflict) || attempt >= chatAppendAttempts {
			return nil, err
		}
		logger.FromContext(ctx).Warn("Chat session append conflict, retrying",
			zap.String("session_id", sessionID),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *ChatService) GetSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	return s.Repo.FindByIDAndUserID(ctx, sessionID, userID)
}

func (s *ChatService) UpdateSession(ctx context.Context, userID, sessionID string, req UpdateChatSessionRequest) (*model.ChatSession, error) {
	title := strings.TrimSpace(req.Title)
	subject := strings.TrimSpace(req.Subject)
	if title == "" && subject == "" {
		return nil, util.NewValidationError("title", "title or subject is required")
	}
	return s.Repo.UpdateMeta(ctx, sessionID, userID, truncateRunes(title, 255), subject)
}

// ask 调用学习助手，返回待保存的提问与回答
func (s *ChatService) ask(ctx context.Context, userID string, history []model.ChatMessage, message, materialID string) (model.ChatMessage, model.ChatMessage, error) {
	var materialContext string
	if materialID != "" {
		var err error
		materialContext, err = resolveContent(ctx, s.Materials, userID, ContentRequest{MaterialID: materialID})
		if err != nil {
			return model.ChatMessage{}, model.ChatMessage{}, err
		}
	}

	asked := s.now()
	reply, err := s.Assistant.Tutor(ctx, history, message, materialContext)
	observeAssistant("chat", err)
	if err != nil {
		if !errors.Is(err, util.ErrUpstream) {
			err = util.Upstream("ai", err)
		}
		return model.ChatMessage{}, model.ChatMessage{}, err
	}

	question := model.ChatMessage{
		ID:        model.GenerateUUID(),
		Role:      model.ChatRoleUser,
		Content:   message,
		Timestamp: asked,
		Context:   materialID,
	}
	answer := model.ChatMessage{
		ID:        model.GenerateUUID(),
		Role:      model.ChatRoleAssistant,
		Content:   reply,
		Timestamp: s.now(),
	}
	return question, answer, nil
}

func validateChatMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", util.NewValidationError("message", "is required")
	}
	if len([]rune(message)) > maxChatMessageLen {
		return "", util.NewValidationError("message", "must be at most %d characters", maxChatMessageLen)
	}
	return message, nil
}
