package repository

import (
	"context"
	"fmt"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatSessionListLimit 会话列表只返回最近更新的若干条
const ChatSessionListLimit = 20

type ChatSessionRepository struct {
	DB *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) *ChatSessionRepository {
	return &ChatSessionRepository{DB: db}
}

func (r *ChatSessionRepository) Create(ctx context.Context, s *model.ChatSession) error {
	if s.Messages == nil {
		s.Messages = []model.ChatMessage{}
	}
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *ChatSessionRepository) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.ChatSession, error) {
	var s model.ChatSession
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&s).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("chat session %s", id))
	}
	return &s, nil
}

// ListByUser 按更新时间倒序
func (r *ChatSessionRepository) ListByUser(ctx context.Context, userID string) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(ChatSessionListLimit).
		Find(&sessions).Error
	return sessions, err
}

// UpdateMeta 修改标题与科目，空值保持不变
func (r *ChatSessionRepository) UpdateMeta(ctx context.Context, id, userID, title, subject string) (*model.ChatSession, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if title != "" {
		updates["title"] = title
	}
	if subject != "" {
		updates["subject"] = subject
	}
	result := r.DB.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, translate(gorm.ErrRecordNotFound, fmt.Sprintf("chat session %s", id))
	}
	return r.FindByIDAndUserID(ctx, id, userID)
}

// AppendMessages 加锁读取后按版本号条件追加消息，版本不一致时返回 util.ErrConflict
func (r *ChatSessionRepository) AppendMessages(ctx context.Context, id, userID string, msgs ...model.ChatMessage) (*model.ChatSession, error) {
	var saved model.ChatSession
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.ChatSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", id, userID).
			First(&current).Error; err != nil {
			return translate(err, fmt.Sprintf("chat session %s", id))
		}

		messages := append(append([]model.ChatMessage{}, current.Messages...), msgs...)
		result := tx.Model(&model.ChatSession{}).
			Where("id = ? AND version = ?", id, current.Version).
			Updates(map[string]interface{}{
				"messages":   datatypes.JSONSlice[model.ChatMessage](messages),
				"version":    current.Version + 1,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("chat session %s: %w", id, util.ErrConflict)
		}
		return tx.Where("id = ?", id).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}
