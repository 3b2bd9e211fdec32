package model

import (
	"gorm.io/datatypes"
)

type MaterialType string

const (
	MaterialNotes    MaterialType = "notes"
	MaterialTextbook MaterialType = "textbook"
	MaterialLecture  MaterialType = "lecture"
	MaterialArticle  MaterialType = "article"
)

// StudyMaterial 学习资料元数据，正文保存在存储服务中
// swagger:model StudyMaterial
type StudyMaterial struct {
	UUIDBase
	UserID     string                      `gorm:"size:128;index;not null" json:"userId"`
	Title      string                      `gorm:"size:255;not null" json:"title"`
	Subject    string                      `gorm:"size:255" json:"subject"`
	Type       MaterialType                `gorm:"size:16;default:'notes'" json:"type"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	ObjectKey  string                      `gorm:"size:255" json:"-"`
	ContentURL string                      `gorm:"size:512" json:"contentUrl"`
	Size       int64                       `json:"size"`
}

func (StudyMaterial) TableName() string {
	return "study_materials"
}
