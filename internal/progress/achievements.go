package progress

import "study_buddy_backend/internal/model"

// Achievements 由进度记录与作答历史派生成就，纯计算
func Achievements(p model.LearningProgress, attempts []model.QuizAttempt) []model.Achievement {
	best := 0
	for _, a := range attempts {
		if s := ScorePercent(a.Score, a.TotalQuestions); s > best {
			best = s
		}
	}

	return []model.Achievement{
		milestone("first-steps", "First Steps", "Complete your first quiz", "🎯", p.TotalQuizzesTaken, 1),
		milestone("quiz-master", "Quiz Master", "Complete 10 quizzes", "📚", p.TotalQuizzesTaken, 10),
		milestone("streak-starter", "Streak Starter", "Study for 3 days in a row", "🔥", p.StreakDays, 3),
		milestone("week-warrior", "Week Warrior", "Study for 7 days in a row", "⚔️", p.StreakDays, 7),
		milestone("high-achiever", "High Achiever", "Score 90%+ on any quiz", "⭐", best, 90),
		milestone("dedicated-learner", "Dedicated Learner", "Study for 100+ minutes", "🏆", p.StudyTimeTotal, 100),
	}
}

func milestone(id, title, desc, icon string, value, requirement int) model.Achievement {
	progress := nonNegative(value)
	if progress > requirement {
		progress = requirement
	}
	return model.Achievement{
		ID:          id,
		Title:       title,
		Description: desc,
		Icon:        icon,
		Unlocked:    value >= requirement,
		Progress:    progress,
		Requirement: requirement,
	}
}
