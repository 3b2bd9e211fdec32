package progress

import (
	"math"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
)

// ValidateAttempt 拒绝无法参与聚合的作答，任何状态修改之前调用
func ValidateAttempt(a model.QuizAttempt) error {
	if a.TotalQuestions < 1 {
		return util.NewValidationError("totalQuestions", "must be at least 1, got %d", a.TotalQuestions)
	}
	if a.Score < 0 {
		return util.NewValidationError("score", "must not be negative, got %d", a.Score)
	}
	if a.Score > a.TotalQuestions {
		return util.NewValidationError("score", "%d exceeds totalQuestions %d", a.Score, a.TotalQuestions)
	}
	if a.TimeSpent < 0 {
		return util.NewValidationError("timeSpent", "must not be negative, got %d", a.TimeSpent)
	}
	if a.CompletedAt.IsZero() {
		return util.NewValidationError("completedAt", "is required")
	}
	return nil
}

// ScorePercent 百分制得分，四舍五入
func ScorePercent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return roundRatio(score, total)
}

// Ingest 根据一次完成的作答计算下一份进度记录。
// 纯函数：不修改 current，不触碰 Topics，由调用方负责持久化。
// 同一作答重复提交会再次累加，不做幂等处理。
func Ingest(attempt model.QuizAttempt, current model.LearningProgress) (model.LearningProgress, error) {
	if err := ValidateAttempt(attempt); err != nil {
		return model.LearningProgress{}, err
	}

	next := current.Clone()

	prevTotal := nonNegative(current.TotalQuizzesTaken)
	prevAverage := clampPercent(current.AverageScore)
	scorePercent := ScorePercent(attempt.Score, attempt.TotalQuestions)

	newTotal := prevTotal + 1
	next.TotalQuizzesTaken = newTotal
	next.AverageScore = clampPercent(int(math.Round(float64(prevAverage*prevTotal+scorePercent) / float64(newTotal))))

	next.StreakDays = nextStreak(nonNegative(current.StreakDays), current.LastStudyDate, attempt.CompletedAt)

	completedAt := attempt.CompletedAt
	next.LastStudyDate = &completedAt

	next.StudyTimeTotal = nonNegative(current.StudyTimeTotal) + SecondsToMinutes(attempt.TimeSpent)

	return next, nil
}

// nextStreak 同一天保持，相邻一天加一，其余（含间隔、倒序、无记录）重置为 1
func nextStreak(streak int, lastStudy *time.Time, completedAt time.Time) int {
	if lastStudy == nil || lastStudy.IsZero() {
		return 1
	}
	switch CalendarDaysBetween(*lastStudy, completedAt) {
	case 0:
		return streak
	case 1:
		return streak + 1
	default:
		return 1
	}
}

// CalendarDaysBetween 以 to 所在时区计算两个时间点之间相差的日历天数
func CalendarDaysBetween(from, to time.Time) int {
	loc := to.Location()
	f := civilDate(from.In(loc))
	t := civilDate(to)
	return int(t.Sub(f).Hours() / 24)
}

// SecondsToMinutes 秒转分钟，按分钟粒度四舍五入
func SecondsToMinutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Round(float64(seconds) / 60))
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func roundRatio(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
