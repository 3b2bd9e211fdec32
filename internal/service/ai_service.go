package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
)

// StudyGenerator 生成式学习内容，实现方返回的错误均视为上游失败
type StudyGenerator interface {
	GenerateQuizQuestions(ctx context.Context, in QuizGenerationInput) ([]model.QuizQuestion, error)
	GenerateRecommendations(ctx context.Context, topics []model.TopicProgress, weakTopics, recentTopics []string) ([]model.StudyRecommendation, error)
}

// StudyAssistant 对话与学习工具，实现方返回的错误均视为上游失败
type StudyAssistant interface {
	Tutor(ctx context.Context, history []model.ChatMessage, message, materialContext string) (string, error)
	GenerateFlashcards(ctx context.Context, content string, count int) ([]model.Flashcard, error)
	Summarize(ctx context.Context, content string, length SummaryLength) (string, error)
	ExplainConcept(ctx context.Context, concept, context string) (string, error)
	ExtractKeyConcepts(ctx context.Context, content string) ([]string, error)
}

type SummaryLength string

const (
	SummaryShort  SummaryLength = "short"
	SummaryMedium SummaryLength = "medium"
	SummaryLong   SummaryLength = "long"
)

// Words 摘要的目标字数
func (l SummaryLength) Words() int {
	switch l {
	case SummaryShort:
		return 100
	case SummaryLong:
		return 500
	default:
		return 250
	}
}

type QuizGenerationInput struct {
	Content    string
	Count      int
	Difficulty model.Difficulty
	Subject    string
}

// AIService OpenAI 兼容的 chat completions 客户端
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AIService{config: cfg, client: &http.Client{Timeout: timeout}}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []AIChatMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

const (
	quizSystemPrompt           = "You are an expert quiz generator for educational purposes."
	recommendationSystemPrompt = "You are a personalized learning advisor."
	studyToolsSystemPrompt     = "You are a helpful study assistant that prepares learning material for students."
	tutorSystemPrompt          = `You are an AI Study Buddy, a friendly and encouraging educational assistant.
Break complex concepts into simpler parts, give examples and analogies, and suggest study techniques when useful.
Be patient, use clear language, ask clarifying questions when the query is unclear, and admit when you do not know something.`
)

// Chat 单轮对话，返回第一条候选内容
func (s *AIService) Chat(ctx context.Context, system, prompt string) (string, error) {
	return s.complete(ctx, []AIChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	})
}

// complete 发送完整的消息序列，返回第一条候选内容
func (s *AIService) complete(ctx context.Context, messages []AIChatMessage) (string, error) {
	if s.config.BaseURL == "" {
		return "", errors.New("ai base_url is not configured")
	}

	reqBody := ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    messages,
		Temperature: 0.7,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.config.BaseURL, "/")+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("AI returned no choices")
}

func (s *AIService) GenerateQuizQuestions(ctx context.Context, in QuizGenerationInput) ([]model.QuizQuestion, error) {
	subjectLine := ""
	if in.Subject != "" {
		subjectLine = "Subject: " + in.Subject
	}
	prompt := fmt.Sprintf(`Based on the following study content, generate %d multiple-choice questions at %s difficulty level.

Study Content:
%s

%s

Return ONLY a valid JSON array with this exact structure (no markdown, no code blocks):
[
  {
    "id": "q1",
    "question": "Question text here?",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "correctAnswer": 0,
    "explanation": "Why this answer is correct",
    "topic": "Specific topic this question covers",
    "concepts": ["concept"]
  }
]

Each question has exactly 4 options and correctAnswer is the index (0-3) of the correct option.`,
		in.Count, in.Difficulty, in.Content, subjectLine)

	text, err := s.Chat(ctx, quizSystemPrompt, prompt)
	if err != nil {
		return nil, util.Upstream("ai", err)
	}

	var questions []model.QuizQuestion
	if err := DecodeJSONArray(text, &questions); err != nil {
		return nil, util.Upstream("ai", err)
	}
	return questions, nil
}

func (s *AIService) GenerateRecommendations(ctx context.Context, topics []model.TopicProgress, weakTopics, recentTopics []string) ([]model.StudyRecommendation, error) {
	progressJSON, err := json.MarshalIndent(topics, "", "  ")
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Based on the student's learning progress, generate study recommendations.

Current Progress:
%s

Weak Topics (need more practice):
%s

Recently Studied Topics:
%s

Generate 3-5 personalized study recommendations. Return ONLY a valid JSON array (no markdown):
[
  {
    "topic": "Topic name",
    "subject": "Subject area",
    "reason": "Why this is recommended",
    "priority": "high|medium|low",
    "suggestedResources": ["Resource 1"],
    "estimatedTime": 30
  }
]

Prioritize topics where the student is struggling, then topics not studied recently.`,
		string(progressJSON), strings.Join(weakTopics, ", "), strings.Join(recentTopics, ", "))

	text, err := s.Chat(ctx, recommendationSystemPrompt, prompt)
	if err != nil {
		return nil, util.Upstream("ai", err)
	}

	var recs []model.StudyRecommendation
	if err := DecodeJSONArray(text, &recs); err != nil {
		return nil, util.Upstream("ai", err)
	}
	return recs, nil
}

// Tutor 多轮对话，history 为此前的消息，materialContext 附加在系统提示之后
func (s *AIService) Tutor(ctx context.Context, history []model.ChatMessage, message, materialContext string) (string, error) {
	system := tutorSystemPrompt
	if materialContext != "" {
		system += "\n\nContext from study materials:\n" + materialContext
	}
	messages := make([]AIChatMessage, 0, len(history)+2)
	messages = append(messages, AIChatMessage{Role: "system", Content: system})
	for _, m := range history {
		messages = append(messages, AIChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, AIChatMessage{Role: "user", Content: message})

	text, err := s.complete(ctx, messages)
	if err != nil {
		return "", util.Upstream("ai", err)
	}
	return text, nil
}

func (s *AIService) GenerateFlashcards(ctx context.Context, content string, count int) ([]model.Flashcard, error) {
	prompt := fmt.Sprintf(`Create %d flashcards from the following study material.

Study Material:
%s

Return ONLY a valid JSON array (no markdown, no code blocks):
[
  {
    "front": "Question or term",
    "back": "Answer or definition"
  }
]

Cover key terms, definitions and concepts. Keep each card concise but complete.`, count, content)

	text, err := s.Chat(ctx, studyToolsSystemPrompt, prompt)
	if err != nil {
		return nil, util.Upstream("ai", err)
	}
	var cards []model.Flashcard
	if err := DecodeJSONArray(text, &cards); err != nil {
		return nil, util.Upstream("ai", err)
	}
	return cards, nil
}

func (s *AIService) Summarize(ctx context.Context, content string, length SummaryLength) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following study material in approximately %d words.

Study Material:
%s

Highlight the main points, keep key facts and definitions, and use bullet points.`, length.Words(), content)

	text, err := s.Chat(ctx, studyToolsSystemPrompt, prompt)
	if err != nil {
		return "", util.Upstream("ai", err)
	}
	return text, nil
}

func (s *AIService) ExplainConcept(ctx context.Context, concept, context string) (string, error) {
	contextLine := ""
	if context != "" {
		contextLine = "Context: " + context
	}
	prompt := fmt.Sprintf(`Explain the concept of %q in simple, easy-to-understand terms.

%s

Start with a simple definition, use an everyday analogy, break down the complex parts,
give a practical application, and end with a "Key Takeaway".`, concept, contextLine)

	text, err := s.Chat(ctx, studyToolsSystemPrompt, prompt)
	if err != nil {
		return "", util.Upstream("ai", err)
	}
	return text, nil
}

func (s *AIService) ExtractKeyConcepts(ctx context.Context, content string) ([]string, error) {
	prompt := fmt.Sprintf(`Analyze the following study material and extract the key concepts and topics covered.

Study Material:
%s

Return ONLY a valid JSON array of strings (no markdown, no code blocks):
["concept1", "concept2"]`, content)

	text, err := s.Chat(ctx, studyToolsSystemPrompt, prompt)
	if err != nil {
		return nil, util.Upstream("ai", err)
	}
	var concepts []string
	if err := DecodeJSONArray(text, &concepts); err != nil {
		return nil, util.Upstream("ai", err)
	}
	return concepts, nil
}

// DecodeJSONArray 从模型输出中截取第一个 JSON 数组并解析
func DecodeJSONArray(text string, out interface{}) error {
	match := jsonArrayPattern.FindString(text)
	if match == "" {
		return errors.New("invalid response format from AI: no JSON array")
	}
	if err := json.Unmarshal([]byte(match), out); err != nil {
		return fmt.Errorf("invalid response format from AI: %w", err)
	}
	return nil
}
