package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt 一次完成的测验作答，创建后不再修改
// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase
	QuizID         string                  `gorm:"size:36;index;not null" json:"quizId"`
	UserID         string                  `gorm:"size:128;index:idx_attempt_user_completed;not null" json:"userId"`
	Answers        datatypes.JSONSlice[int] `json:"answers"`
	Score          int                     `gorm:"not null" json:"score"`
	TotalQuestions int                     `gorm:"not null" json:"totalQuestions"`
	CompletedAt    time.Time               `gorm:"index:idx_attempt_user_completed;not null" json:"completedAt"`
	TimeSpent      int                     `gorm:"default:0" json:"timeSpent"` // 秒
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
