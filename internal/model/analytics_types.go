package model

import "time"

// DailyActivity 每日测验次数，固定 7 天
type DailyActivity struct {
	Date     string `json:"date"`
	DayLabel string `json:"dayLabel"`
	Count    int    `json:"count"`
}

// ScorePoint 成绩趋势中的一个点
type ScorePoint struct {
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	QuizID      string    `json:"quizId"`
	CompletedAt time.Time `json:"completedAt"`
}

// TopicMasterySummary 主题聚合结果
type TopicMasterySummary struct {
	Topic      string `json:"topic"`
	Total      int    `json:"total"`
	Correct    int    `json:"correct"`
	Percentage int    `json:"percentage"`
}

// TopicSlice 主题分布饼图的一块
type TopicSlice struct {
	Name  string `json:"name"`
	Topic string `json:"topic"`
	Count int    `json:"count"`
	Value int    `json:"value"` // 占题量百分比
	Color string `json:"color"`
}

type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unlocked    bool   `json:"unlocked"`
	Progress    int    `json:"progress"`
	Requirement int    `json:"requirement"`
}

type ProgressStats struct {
	StreakDays        int `json:"streakDays"`
	TotalQuizzesTaken int `json:"totalQuizzesTaken"`
	AverageScore      int `json:"averageScore"`
	StudyTimeTotal    int `json:"studyTimeTotal"`
}

// Dashboard 学习分析页面所需的全部派生数据
type Dashboard struct {
	Stats             ProgressStats         `json:"stats"`
	DailyActivity     []DailyActivity       `json:"dailyActivity"`
	ScoreHistory      []ScorePoint          `json:"scoreHistory"`
	TopicSummaries    []TopicMasterySummary `json:"topicSummaries"`
	TopicDistribution []TopicSlice          `json:"topicDistribution"`
	WeakTopics        []string              `json:"weakTopics"`
	StrongTopics      []string              `json:"strongTopics"`
	Achievements      []Achievement         `json:"achievements"`
}

// StudyRecommendation 由生成式服务返回的学习建议
type StudyRecommendation struct {
	Topic              string   `json:"topic"`
	Subject            string   `json:"subject"`
	Reason             string   `json:"reason"`
	Priority           string   `json:"priority"` // high, medium, low
	SuggestedResources []string `json:"suggestedResources"`
	EstimatedTime      int      `json:"estimatedTime"` // 分钟
}
