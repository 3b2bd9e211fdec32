package progress

import (
	"errors"
	"testing"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func attempt(score, total, timeSpent int, at time.Time) model.QuizAttempt {
	return model.QuizAttempt{
		QuizID:         "quiz-1",
		UserID:         "user-1",
		Score:          score,
		TotalQuestions: total,
		TimeSpent:      timeSpent,
		CompletedAt:    at,
	}
}

func TestIngestScenario(t *testing.T) {
	start := *model.NewLearningProgress("user-1")
	start.LastStudyDate = ptr(day(2024, time.January, 1, 9))

	first, err := Ingest(attempt(8, 10, 600, day(2024, time.January, 2, 10)), start)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.TotalQuizzesTaken != 1 || first.AverageScore != 80 || first.StreakDays != 1 || first.StudyTimeTotal != 10 {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if !first.LastStudyDate.Equal(day(2024, time.January, 2, 10)) {
		t.Fatalf("lastStudyDate = %v", first.LastStudyDate)
	}

	second, err := Ingest(attempt(5, 10, 300, day(2024, time.January, 2, 18)), first)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.TotalQuizzesTaken != 2 || second.AverageScore != 65 || second.StreakDays != 1 || second.StudyTimeTotal != 15 {
		t.Fatalf("unexpected second result: %+v", second)
	}
	if !second.LastStudyDate.Equal(day(2024, time.January, 2, 18)) {
		t.Fatalf("same-day attempt must still move lastStudyDate, got %v", second.LastStudyDate)
	}

	third, err := Ingest(attempt(10, 10, 0, day(2024, time.January, 4, 8)), second)
	if err != nil {
		t.Fatalf("third ingest: %v", err)
	}
	if third.StreakDays != 1 {
		t.Fatalf("streak after 2-day gap = %d, want 1", third.StreakDays)
	}
}

func TestIngestStreakLaw(t *testing.T) {
	last := day(2024, time.March, 10, 23)
	base := model.LearningProgress{StreakDays: 4, LastStudyDate: ptr(last), TotalQuizzesTaken: 4, AverageScore: 70}

	cases := []struct {
		name string
		at   time.Time
		want int
	}{
		{"same day", day(2024, time.March, 10, 23).Add(30 * time.Minute), 4},
		{"next day just after midnight", day(2024, time.March, 11, 0).Add(time.Minute), 5},
		{"two days later", day(2024, time.March, 12, 9), 1},
		{"a month later", day(2024, time.April, 10, 9), 1},
		{"backdated", day(2024, time.March, 9, 9), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Ingest(attempt(1, 2, 60, tc.at), base)
			if err != nil {
				t.Fatalf("Ingest: %v", err)
			}
			if next.StreakDays != tc.want {
				t.Fatalf("streak = %d, want %d", next.StreakDays, tc.want)
			}
		})
	}
}

func TestIngestFirstAttemptWithoutLastStudyDate(t *testing.T) {
	next, err := Ingest(attempt(3, 4, 45, day(2024, time.May, 1, 12)), *model.NewLearningProgress("u"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if next.StreakDays != 1 || next.TotalQuizzesTaken != 1 || next.AverageScore != 75 || next.StudyTimeTotal != 1 {
		t.Fatalf("unexpected: %+v", next)
	}
}

func TestIngestWeightedAverageLaw(t *testing.T) {
	cases := []struct {
		n, a, score, total, want int
	}{
		{0, 0, 7, 10, 70},
		{3, 60, 10, 10, 70},
		{9, 90, 0, 10, 81},
		{1, 33, 2, 3, 50},
		{2, 100, 1, 3, 78},
	}
	for _, tc := range cases {
		cur := model.LearningProgress{TotalQuizzesTaken: tc.n, AverageScore: tc.a}
		next, err := Ingest(attempt(tc.score, tc.total, 0, day(2024, time.June, 1, 8)), cur)
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if next.AverageScore != tc.want {
			t.Errorf("n=%d a=%d s=%d/%d: average = %d, want %d", tc.n, tc.a, tc.score, tc.total, next.AverageScore, tc.want)
		}
	}
}

func TestIngestIsNotIdempotent(t *testing.T) {
	a := attempt(4, 10, 120, day(2024, time.July, 1, 8))
	cur := model.LearningProgress{TotalQuizzesTaken: 2, AverageScore: 90}

	once, err := Ingest(a, cur)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Ingest(a, once)
	if err != nil {
		t.Fatal(err)
	}
	if twice.TotalQuizzesTaken != cur.TotalQuizzesTaken+2 {
		t.Fatalf("re-ingestion must count twice: %d", twice.TotalQuizzesTaken)
	}
	if twice.AverageScore == once.AverageScore {
		t.Fatalf("re-ingestion must shift the average again: %d", twice.AverageScore)
	}
	if twice.StudyTimeTotal != 4 {
		t.Fatalf("study time = %d, want 4", twice.StudyTimeTotal)
	}
}

func TestIngestDoesNotMutateInputOrTopics(t *testing.T) {
	last := day(2024, time.August, 1, 8)
	cur := model.LearningProgress{
		UserID:        "u",
		LastStudyDate: ptr(last),
		Topics:        []model.TopicProgress{{Topic: "Algebra", MasteryLevel: 40}},
		WeakTopics:    []string{"Algebra"},
	}
	next, err := Ingest(attempt(1, 1, 30, day(2024, time.August, 2, 8)), cur)
	if err != nil {
		t.Fatal(err)
	}
	if !cur.LastStudyDate.Equal(last) || cur.TotalQuizzesTaken != 0 {
		t.Fatal("input record was mutated")
	}
	if len(next.Topics) != 1 || next.Topics[0].MasteryLevel != 40 || len(next.WeakTopics) != 1 {
		t.Fatalf("topics must be left untouched: %+v", next.Topics)
	}
}

func TestIngestBounds(t *testing.T) {
	cur := model.LearningProgress{TotalQuizzesTaken: 5, AverageScore: 140, StreakDays: -3}
	for score := 0; score <= 6; score++ {
		next, err := Ingest(attempt(score, 6, 10, day(2024, time.September, 1, 8)), cur)
		if err != nil {
			t.Fatal(err)
		}
		if next.AverageScore < 0 || next.AverageScore > 100 {
			t.Fatalf("average out of range: %d", next.AverageScore)
		}
		if next.StreakDays < 0 {
			t.Fatalf("negative streak: %d", next.StreakDays)
		}
	}
}

func TestIngestValidation(t *testing.T) {
	at := day(2024, time.October, 1, 8)
	cases := []struct {
		name  string
		a     model.QuizAttempt
		field string
	}{
		{"zero questions", attempt(0, 0, 10, at), "totalQuestions"},
		{"score above total", attempt(6, 5, 10, at), "score"},
		{"negative score", attempt(-1, 5, 10, at), "score"},
		{"negative time", attempt(1, 5, -10, at), "timeSpent"},
		{"missing completion", attempt(1, 5, 10, time.Time{}), "completedAt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Ingest(tc.a, model.LearningProgress{})
			if !errors.Is(err, util.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *util.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestCalendarDaysBetweenUsesTargetLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2024-01-01 20:00 UTC is 2024-01-02 05:00 in Tokyo
	from := time.Date(2024, time.January, 1, 20, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.January, 2, 23, 0, 0, 0, tokyo)
	if got := CalendarDaysBetween(from, to); got != 0 {
		t.Fatalf("days = %d, want 0", got)
	}
	if got := CalendarDaysBetween(from, to.In(time.UTC)); got != 1 {
		t.Fatalf("days in UTC = %d, want 1", got)
	}
}

func TestSecondsToMinutes(t *testing.T) {
	cases := map[int]int{0: 0, -5: 0, 29: 0, 30: 1, 89: 1, 90: 2, 600: 10}
	for in, want := range cases {
		if got := SecondsToMinutes(in); got != want {
			t.Errorf("SecondsToMinutes(%d) = %d, want %d", in, got, want)
		}
	}
}
