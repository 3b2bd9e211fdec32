package model

import (
	"time"

	"gorm.io/datatypes"
)

// DailyGoal 用户某一天的学习目标，主键为 userID_yyyy-mm-dd
// swagger:model DailyGoal
type DailyGoal struct {
	ID               string                      `gorm:"primaryKey;size:160" json:"id"`
	UserID           string                      `gorm:"size:128;index;not null" json:"userId"`
	Date             string                      `gorm:"size:10;index;not null" json:"date"`
	TargetStudyTime  int                         `gorm:"default:0" json:"targetStudyTime"` // 分钟
	ActualStudyTime  int                         `gorm:"default:0" json:"actualStudyTime"`
	TargetQuizzes    int                         `gorm:"default:0" json:"targetQuizzes"`
	CompletedQuizzes int                         `gorm:"default:0" json:"completedQuizzes"`
	Topics           datatypes.JSONSlice[string] `json:"topics"`
	Completed        bool                        `gorm:"default:false" json:"completed"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

func (DailyGoal) TableName() string {
	return "daily_goals"
}

func DailyGoalID(userID, date string) string {
	return userID + "_" + date
}

// Reached 学习时长与测验数都达到目标
func (g DailyGoal) Reached() bool {
	return g.ActualStudyTime >= g.TargetStudyTime && g.CompletedQuizzes >= g.TargetQuizzes
}
