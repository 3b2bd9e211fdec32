package model

import (
	"time"

	"gorm.io/datatypes"
)

// TopicProgress 单个主题的掌握度快照，嵌入在 LearningProgress 中
type TopicProgress struct {
	Topic           string    `json:"topic"`
	Subject         string    `json:"subject"`
	MasteryLevel    int       `json:"masteryLevel"` // 0-100
	QuizzesTaken    int       `json:"quizzesTaken"`
	AverageScore    int       `json:"averageScore"`
	LastStudied     time.Time `json:"lastStudied"`
	ConceptsCovered []string  `json:"conceptsCovered"`
	// 累计答题数据，用于计算 MasteryLevel
	QuestionsAnswered int `json:"questionsAnswered"`
	QuestionsCorrect  int `json:"questionsCorrect"`
}

// LearningProgress 每个用户一条的学习进度聚合记录
// swagger:model LearningProgress
type LearningProgress struct {
	UserID            string                             `gorm:"primaryKey;size:128" json:"userId"`
	Topics            datatypes.JSONSlice[TopicProgress] `json:"topics"`
	TotalQuizzesTaken int                                `gorm:"default:0" json:"totalQuizzesTaken"`
	AverageScore      int                                `gorm:"default:0" json:"averageScore"`
	StreakDays        int                                `gorm:"default:0" json:"streakDays"`
	LastStudyDate     *time.Time                         `json:"lastStudyDate"`
	StudyTimeTotal    int                                `gorm:"default:0" json:"studyTimeTotal"` // 分钟
	WeakTopics        datatypes.JSONSlice[string]        `json:"weakTopics"`
	StrongTopics      datatypes.JSONSlice[string]        `json:"strongTopics"`
	// Version 乐观锁版本号，每次写入递增
	Version   int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (LearningProgress) TableName() string {
	return "learning_progress"
}

// NewLearningProgress 首次访问时使用的零值记录
func NewLearningProgress(userID string) *LearningProgress {
	return &LearningProgress{
		UserID:       userID,
		Topics:       datatypes.JSONSlice[TopicProgress]{},
		WeakTopics:   datatypes.JSONSlice[string]{},
		StrongTopics: datatypes.JSONSlice[string]{},
	}
}

// Clone 深拷贝，保证纯函数不修改调用方持有的记录
func (p LearningProgress) Clone() LearningProgress {
	out := p
	if p.LastStudyDate != nil {
		d := *p.LastStudyDate
		out.LastStudyDate = &d
	}
	out.Topics = make(datatypes.JSONSlice[TopicProgress], len(p.Topics))
	for i, t := range p.Topics {
		t.ConceptsCovered = append([]string(nil), t.ConceptsCovered...)
		out.Topics[i] = t
	}
	out.WeakTopics = append(datatypes.JSONSlice[string]{}, p.WeakTopics...)
	out.StrongTopics = append(datatypes.JSONSlice[string]{}, p.StrongTopics...)
	return out
}
