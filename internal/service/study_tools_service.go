package service

import (
	"context"
	"strings"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/monitoring"
)

const (
	DefaultFlashcardCount = 10
	MaxFlashcardCount     = 30
	// maxAssistantContext 发送给生成式服务的资料正文上限（按字符）
	maxAssistantContext = 12000
)

// StudyToolsService 闪卡、摘要、概念解释与关键概念提取
type StudyToolsService struct {
	Materials *MaterialService
	Assistant StudyAssistant
}

func NewStudyToolsService(materials *MaterialService, assistant StudyAssistant) *StudyToolsService {
	return &StudyToolsService{Materials: materials, Assistant: assistant}
}

// ContentRequest 正文来自资料或直接提交，两者都给时以资料为准
type ContentRequest struct {
	MaterialID string `json:"materialId"`
	Content    string `json:"content"`
}

type FlashcardRequest struct {
	ContentRequest
	Count int `json:"count"`
}

type SummaryRequest struct {
	ContentRequest
	Length SummaryLength `json:"length"`
}

type ExplainRequest struct {
	Concept string `json:"concept" binding:"required"`
	Context string `json:"context"`
}

type SummaryResult struct {
	Summary string        `json:"summary"`
	Length  SummaryLength `json:"length"`
}

type ExplanationResult struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}

func (s *StudyToolsService) GenerateFlashcards(ctx context.Context, userID string, req FlashcardRequest) ([]model.Flashcard, error) {
	count := req.Count
	if count == 0 {
		count = DefaultFlashcardCount
	}
	if count < 1 || count > MaxFlashcardCount {
		return nil, util.NewValidationError("count", "must be between 1 and %d, got %d", MaxFlashcardCount, count)
	}
	content, err := resolveContent(ctx, s.Materials, userID, req.ContentRequest)
	if err != nil {
		return nil, err
	}

	cards, err := s.Assistant.GenerateFlashcards(ctx, content, count)
	observeAssistant("flashcards", err)
	if err != nil {
		return nil, err
	}

	// 丢弃正反面缺失的卡片
	out := make([]model.Flashcard, 0, len(cards))
	for _, c := range cards {
		c.Front = strings.TrimSpace(c.Front)
		c.Back = strings.TrimSpace(c.Back)
		if c.Front == "" || c.Back == "" {
			continue
		}
		out = append(out, c)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

func (s *StudyToolsService) Summarize(ctx context.Context, userID string, req SummaryRequest) (*SummaryResult, error) {
	length := req.Length
	switch length {
	case "":
		length = SummaryMedium
	case SummaryShort, SummaryMedium, SummaryLong:
	default:
		return nil, util.NewValidationError("length", "unsupported length %q", length)
	}
	content, err := resolveContent(ctx, s.Materials, userID, req.ContentRequest)
	if err != nil {
		return nil, err
	}

	summary, err := s.Assistant.Summarize(ctx, content, length)
	observeAssistant("summarize", err)
	if err != nil {
		return nil, err
	}
	return &SummaryResult{Summary: summary, Length: length}, nil
}

func (s *StudyToolsService) ExplainConcept(ctx context.Context, req ExplainRequest) (*ExplanationResult, error) {
	concept := strings.TrimSpace(req.Concept)
	if concept == "" {
		return nil, util.NewValidationError("concept", "is required")
	}

	explanation, err := s.Assistant.ExplainConcept(ctx, concept, truncateRunes(strings.TrimSpace(req.Context), maxAssistantContext))
	observeAssistant("explain", err)
	if err != nil {
		return nil, err
	}
	return &ExplanationResult{Concept: concept, Explanation: explanation}, nil
}

// ExtractKeyConcepts 结果去重并去掉空白项，保持原有顺序
func (s *StudyToolsService) ExtractKeyConcepts(ctx context.Context, userID string, req ContentRequest) ([]string, error) {
	content, err := resolveContent(ctx, s.Materials, userID, req)
	if err != nil {
		return nil, err
	}

	concepts, err := s.Assistant.ExtractKeyConcepts(ctx, content)
	observeAssistant("concepts", err)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(concepts))
	out := make([]string, 0, len(concepts))
	for _, c := range concepts {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if _, dup := seen[key]; c == "" || dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// resolveContent 读取资料正文或使用直接提交的文本，并截断到生成式服务可接受的长度
func resolveContent(ctx context.Context, materials *MaterialService, userID string, req ContentRequest) (string, error) {
	content := req.Content
	if req.MaterialID != "" {
		if materials == nil {
			return "", util.NewValidationError("materialId", "materials are not available")
		}
		var err error
		content, err = materials.Content(ctx, userID, req.MaterialID)
		if err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(content) == "" {
		return "", util.NewValidationError("content", "materialId or content is required")
	}
	return truncateRunes(content, maxAssistantContext), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func observeAssistant(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	monitoring.AssistantRequests.WithLabelValues(operation, outcome).Inc()
}
