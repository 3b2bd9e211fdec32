package model

import (
	"gorm.io/datatypes"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuizQuestion 单道选择题，Topic 由生成方给出，任意字符串均合法
type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Topic         string   `json:"topic"`
	Concepts      []string `json:"concepts,omitempty"`
}

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	UserID        string                           `gorm:"size:128;index;not null" json:"userId"`
	Title         string                           `gorm:"size:255;not null" json:"title"`
	Subject       string                           `gorm:"size:255" json:"subject"`
	Difficulty    Difficulty                       `gorm:"size:16;default:'medium'" json:"difficulty"`
	SourceContent string                           `gorm:"type:text" json:"sourceContent,omitempty"`
	Questions     datatypes.JSONSlice[QuizQuestion] `json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}
