package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	progress   *repository.ProgressRepository
	attempts   *repository.AttemptRepository
	quizzes    *repository.QuizRepository
	goals      *repository.DailyGoalRepository
	goalSvc    *DailyGoalService
	progSvc    *ProgressService
	analytics  *AnalyticsService
	progConfig config.ProgressConfig
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db := testutil.DB(t)
	cfg := config.ProgressConfig{Timezone: "UTC", MaxRetries: 3, ScoreHistorySize: 10, TopTopics: 5}

	f := &fixture{
		db:         db,
		progress:   repository.NewProgressRepository(db),
		attempts:   repository.NewAttemptRepository(db),
		quizzes:    repository.NewQuizRepository(db),
		goals:      repository.NewDailyGoalRepository(db),
		progConfig: cfg,
	}
	f.goalSvc = NewDailyGoalService(f.goals)
	f.progSvc = NewProgressService(cfg, f.progress, f.attempts, f.quizzes, f.goalSvc)
	f.progSvc.now = func() time.Time { return now }
	f.analytics = NewAnalyticsService(cfg, f.progress, f.attempts, f.quizzes)
	f.analytics.now = func() time.Time { return now }
	return f
}

// answers 前 correct 题作答正确（标准答案为 0），其余作答 1
func answers(total, correct int) []int {
	out := make([]int, total)
	for i := correct; i < total; i++ {
		out[i] = 1
	}
	return out
}

// injectConflicts 在前 n 次写 learning_progress 之前把版本号加一，模拟并发写入者
func injectConflicts(t *testing.T, db *gorm.DB, n int32) *int32 {
	t.Helper()
	var injected int32
	err := db.Callback().Update().Before("gorm:update").Register("test:inject_conflict", func(tx *gorm.DB) {
		if tx.Statement.Table != "learning_progress" || atomic.LoadInt32(&injected) >= n {
			return
		}
		atomic.AddInt32(&injected, 1)
		tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE learning_progress SET version = version + 1")
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return &injected
}

type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	questions []model.QuizQuestion
	recs      []model.StudyRecommendation
	err       error
	release   chan struct{}
	// entered 非空时在进入 GenerateRecommendations 时收到一次通知
	entered chan struct{}

	lastQuiz   QuizGenerationInput
	lastWeak   []string
	lastRecent []string
}

func (g *fakeGenerator) GenerateQuizQuestions(_ context.Context, in QuizGenerationInput) ([]model.QuizQuestion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastQuiz = in
	if g.err != nil {
		return nil, g.err
	}
	return append([]model.QuizQuestion(nil), g.questions...), nil
}

func (g *fakeGenerator) GenerateRecommendations(ctx context.Context, _ []model.TopicProgress, weak, recent []string) ([]model.StudyRecommendation, error) {
	if g.entered != nil {
		select {
		case g.entered <- struct{}{}:
		default:
		}
	}
	if g.release != nil {
		<-g.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastWeak = weak
	g.lastRecent = recent
	if g.err != nil {
		return nil, g.err
	}
	return g.recs, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGenerator) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

type fakeAssistant struct {
	mu       sync.Mutex
	calls    int
	reply    string
	cards    []model.Flashcard
	concepts []string
	err      error

	lastHistory []model.ChatMessage
	lastContext string
	lastCount   int
	lastLength  SummaryLength
}

func (a *fakeAssistant) record() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

func (a *fakeAssistant) Tutor(_ context.Context, history []model.ChatMessage, message, materialContext string) (string, error) {
	if err := a.record(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastHistory = append([]model.ChatMessage(nil), history...)
	a.lastContext = materialContext
	return a.reply + ": " + message, nil
}

func (a *fakeAssistant) GenerateFlashcards(_ context.Context, content string, count int) ([]model.Flashcard, error) {
	if err := a.record(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastContext = content
	a.lastCount = count
	return a.cards, nil
}

func (a *fakeAssistant) Summarize(_ context.Context, content string, length SummaryLength) (string, error) {
	if err := a.record(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastContext = content
	a.lastLength = length
	return "summary of " + content, nil
}

func (a *fakeAssistant) ExplainConcept(_ context.Context, concept, context string) (string, error) {
	if err := a.record(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastContext = context
	return concept + " explained", nil
}

func (a *fakeAssistant) ExtractKeyConcepts(_ context.Context, content string) ([]string, error) {
	if err := a.record(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastContext = content
	return a.concepts, nil
}

func (a *fakeAssistant) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *fakeAssistant) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}
