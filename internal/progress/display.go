package progress

import (
	"fmt"
	"sort"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
)

const (
	ActivityWindowDays  = 7
	DefaultHistorySize  = 10
	DefaultTopTopics    = 5
	maxTopicLabelLength = 15
)

// Palette 按位置分配颜色，与主题本身无关
var Palette = []string{"#3b82f6", "#22c55e", "#f59e0b", "#ef4444", "#8b5cf6"}

// DailyActivity 以 now 所在时区统计最近 7 个日历日的作答次数，旧日期在前，无数据的日期计 0
func DailyActivity(attempts []model.QuizAttempt, now time.Time) []model.DailyActivity {
	loc := now.Location()
	counts := make(map[string]int, len(attempts))
	for _, a := range attempts {
		if a.CompletedAt.IsZero() {
			continue
		}
		counts[a.CompletedAt.In(loc).Format(util.DateFormat)]++
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 12, 0, 0, 0, loc)

	series := make([]model.DailyActivity, 0, ActivityWindowDays)
	for i := ActivityWindowDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := day.Format(util.DateFormat)
		series = append(series, model.DailyActivity{
			Date:     key,
			DayLabel: day.Format("Mon"),
			Count:    counts[key],
		})
	}
	return series
}

// ScoreHistory 取最近 n 次作答，按时间正序输出百分制得分
func ScoreHistory(attempts []model.QuizAttempt, n int) []model.ScorePoint {
	if n <= 0 {
		n = DefaultHistorySize
	}
	sorted := append([]model.QuizAttempt(nil), attempts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.After(sorted[j].CompletedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	points := make([]model.ScorePoint, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		a := sorted[i]
		points = append(points, model.ScorePoint{
			Name:        fmt.Sprintf("Quiz %d", len(points)+1),
			Score:       ScorePercent(a.Score, a.TotalQuestions),
			QuizID:      a.QuizID,
			CompletedAt: a.CompletedAt,
		})
	}
	return points
}

// TopicDistribution 前 limit 个主题占全部题量的比例，颜色按位置循环
func TopicDistribution(summaries []model.TopicMasterySummary, limit int) []model.TopicSlice {
	sum := 0
	for _, s := range summaries {
		sum += s.Total
	}

	top := TopN(summaries, limit)
	slices := make([]model.TopicSlice, 0, len(top))
	for i, s := range top {
		value := 0
		if sum > 0 {
			value = roundRatio(s.Total, sum)
		}
		slices = append(slices, model.TopicSlice{
			Name:  truncateLabel(s.Topic),
			Topic: s.Topic,
			Count: s.Total,
			Value: value,
			Color: Palette[i%len(Palette)],
		})
	}
	return slices
}

// DashboardOptions 展示参数
type DashboardOptions struct {
	HistorySize int
	TopTopics   int
	Now         time.Time
}

// BuildDashboard 由进度记录、作答与测验派生全部展示数据，输入为空时返回零值结构
func BuildDashboard(p model.LearningProgress, attempts []model.QuizAttempt, quizzes []model.Quiz, opts DashboardOptions) model.Dashboard {
	if opts.TopTopics <= 0 {
		opts.TopTopics = DefaultTopTopics
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	summaries := AggregateTopics(quizzes, p.Topics)
	weak, strong := ClassifyTopics(p.Topics)

	return model.Dashboard{
		Stats: model.ProgressStats{
			StreakDays:        p.StreakDays,
			TotalQuizzesTaken: p.TotalQuizzesTaken,
			AverageScore:      p.AverageScore,
			StudyTimeTotal:    p.StudyTimeTotal,
		},
		DailyActivity:     DailyActivity(attempts, opts.Now),
		ScoreHistory:      ScoreHistory(attempts, opts.HistorySize),
		TopicSummaries:    TopN(summaries, opts.TopTopics),
		TopicDistribution: TopicDistribution(summaries, opts.TopTopics),
		WeakTopics:        weak,
		StrongTopics:      strong,
		Achievements:      Achievements(p, attempts),
	}
}

func truncateLabel(topic string) string {
	runes := []rune(topic)
	if len(runes) > maxTopicLabelLength {
		return string(runes[:maxTopicLabelLength]) + "..."
	}
	return topic
}
