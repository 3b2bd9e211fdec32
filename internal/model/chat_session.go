package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Context 生成回答时引用的资料 ID
	Context string `json:"context,omitempty"`
}

// ChatSession 与学习助手的一段对话，消息整体以 JSON 保存
// swagger:model ChatSession
type ChatSession struct {
	UUIDBase
	UserID   string                           `gorm:"size:128;index;not null" json:"userId"`
	Title    string                           `gorm:"size:255" json:"title"`
	Subject  string                           `gorm:"size:255" json:"subject,omitempty"`
	Messages datatypes.JSONSlice[ChatMessage] `json:"messages"`
	Version  int                              `gorm:"default:0" json:"-"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// Flashcard 生成的闪卡，不落库
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}
