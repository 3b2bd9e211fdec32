package service

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/progress"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const (
	attemptsSheet = "Attempts"
	topicsSheet   = "Topics"
)

type AnalyticsService struct {
	ProgressRepo *repository.ProgressRepository
	AttemptRepo  *repository.AttemptRepository
	QuizRepo     *repository.QuizRepository

	settings atomic.Pointer[config.ProgressConfig]
	now      func() time.Time
}

func NewAnalyticsService(
	cfg config.ProgressConfig,
	progressRepo *repository.ProgressRepository,
	attemptRepo *repository.AttemptRepository,
	quizRepo *repository.QuizRepository,
) *AnalyticsService {
	s := &AnalyticsService{
		ProgressRepo: progressRepo,
		AttemptRepo:  attemptRepo,
		QuizRepo:     quizRepo,
		now:          time.Now,
	}
	s.UpdateConfig(cfg)
	return s
}

func (s *AnalyticsService) UpdateConfig(cfg config.ProgressConfig) {
	s.settings.Store(&cfg)
}

type analyticsInputs struct {
	progress *model.LearningProgress
	attempts []model.QuizAttempt
	quizzes  []model.Quiz
}

// windowMargin 时间以字符串比较的驱动在跨时区时可能错位，窗口起点多放宽两天，
// 多取的记录由 DailyActivity 按日期过滤
const windowMargin = 48 * time.Hour

// load 并发读取进度与测验
func (s *AnalyticsService) load(ctx context.Context, userID string) (*analyticsInputs, error) {
	in := &analyticsInputs{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.ProgressRepo.GetOrCreate(gctx, userID)
		in.progress = p
		return err
	})
	g.Go(func() error {
		q, err := s.QuizRepo.ListByUser(gctx, userID)
		in.quizzes = q
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// dashboardAttempts 合并活动窗口内的全部作答、最近 historySize 次作答与历史最高分作答，
// 这三部分足以计算看板的每一项
func (s *AnalyticsService) dashboardAttempts(ctx context.Context, userID string, now time.Time, historySize int) ([]model.QuizAttempt, error) {
	y, m, d := now.Date()
	windowStart := time.Date(y, m, d-(progress.ActivityWindowDays-1), 0, 0, 0, 0, now.Location())

	var window, recent []model.QuizAttempt
	var best *model.QuizAttempt
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		window, err = s.AttemptRepo.ListSince(gctx, userID, windowStart.Add(-windowMargin))
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.AttemptRepo.ListByUser(gctx, userID, "", historySize)
		return err
	})
	g.Go(func() (err error) {
		best, err = s.AttemptRepo.BestAttempt(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]model.QuizAttempt, 0, len(window)+len(recent)+1)
	seen := make(map[string]struct{}, cap(merged))
	add := func(a model.QuizAttempt) {
		if _, ok := seen[a.ID]; ok {
			return
		}
		seen[a.ID] = struct{}{}
		merged = append(merged, a)
	}
	for _, a := range window {
		add(a)
	}
	for _, a := range recent {
		add(a)
	}
	if best != nil {
		add(*best)
	}
	return merged, nil
}

// GetDashboard historySize<=0 时使用配置的默认值
func (s *AnalyticsService) GetDashboard(ctx context.Context, userID string, historySize int) (*model.Dashboard, error) {
	cfg := *s.settings.Load()
	if historySize <= 0 {
		historySize = cfg.ScoreHistorySize
	}
	now := s.now().In(cfg.Location())

	in, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	in.attempts, err = s.dashboardAttempts(ctx, userID, now, historySize)
	if err != nil {
		return nil, err
	}

	dashboard := progress.BuildDashboard(*in.progress, in.attempts, in.quizzes, progress.DashboardOptions{
		HistorySize: historySize,
		TopTopics:   cfg.TopTopics,
		Now:         now,
	})
	return &dashboard, nil
}

// GetTopicSummaries 完整的主题聚合结果，不做截取
func (s *AnalyticsService) GetTopicSummaries(ctx context.Context, userID string) ([]model.TopicMasterySummary, error) {
	in, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return progress.AggregateTopics(in.quizzes, in.progress.Topics), nil
}

// ExportWorkbook 导出作答记录与主题掌握度
func (s *AnalyticsService) ExportWorkbook(ctx context.Context, userID string) (*bytes.Buffer, error) {
	in, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc := s.settings.Load().Location()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", attemptsSheet); err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(in.quizzes))
	for _, q := range in.quizzes {
		titles[q.ID] = q.Title
	}
	attemptRows := [][]interface{}{{"Completed At", "Quiz", "Score", "Total Questions", "Percent", "Time Spent (s)"}}
	err = s.AttemptRepo.ForEachPage(ctx, userID, repository.ExportPageSize, func(page []model.QuizAttempt) error {
		for _, a := range page {
			attemptRows = append(attemptRows, []interface{}{
				a.CompletedAt.In(loc).Format(util.TimeFormat),
				titles[a.QuizID],
				a.Score,
				a.TotalQuestions,
				progress.ScorePercent(a.Score, a.TotalQuestions),
				a.TimeSpent,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := writeRows(f, attemptsSheet, attemptRows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(topicsSheet); err != nil {
		return nil, err
	}
	topicRows := [][]interface{}{{"Topic", "Subject", "Mastery", "Band", "Quizzes Taken", "Average Score", "Questions Answered", "Questions Correct", "Last Studied"}}
	for _, t := range in.progress.Topics {
		lastStudied := ""
		if !t.LastStudied.IsZero() {
			lastStudied = t.LastStudied.In(loc).Format(util.TimeFormat)
		}
		topicRows = append(topicRows, []interface{}{
			t.Topic,
			t.Subject,
			t.MasteryLevel,
			progress.Classify(t.MasteryLevel).String(),
			t.QuizzesTaken,
			t.AverageScore,
			t.QuestionsAnswered,
			t.QuestionsCorrect,
			lastStudied,
		})
	}
	if err := writeRows(f, topicsSheet, topicRows); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
