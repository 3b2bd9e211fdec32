package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/testutil"
	"study_buddy_backend/internal/util"

	"gorm.io/gorm"
)

func TestChatSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewChatSessionRepository(testutil.DB(t))

	s := &model.ChatSession{UserID: "u1", Title: "Algebra help"}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatal(err)
	}
	if s.ID == "" {
		t.Fatal("expected generated id")
	}

	if _, err := repo.FindByIDAndUserID(ctx, s.ID, "u2"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("other user must not see the session, got %v", err)
	}

	now := time.Now()
	saved, err := repo.AppendMessages(ctx, s.ID, "u1",
		model.ChatMessage{ID: "m1", Role: model.ChatRoleUser, Content: "what is x?", Timestamp: now},
		model.ChatMessage{ID: "m2", Role: model.ChatRoleAssistant, Content: "a variable", Timestamp: now},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Messages) != 2 || saved.Messages[1].Content != "a variable" {
		t.Fatalf("messages = %+v", saved.Messages)
	}

	if _, err := repo.AppendMessages(ctx, "missing", "u1", model.ChatMessage{}); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	renamed, err := repo.UpdateMeta(ctx, s.ID, "u1", "Linear equations", "")
	if err != nil {
		t.Fatal(err)
	}
	if renamed.Title != "Linear equations" || len(renamed.Messages) != 2 {
		t.Fatalf("renamed = %+v", renamed)
	}
	if _, err := repo.UpdateMeta(ctx, s.ID, "u2", "x", ""); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}

	for i := 0; i < ChatSessionListLimit+3; i++ {
		if err := repo.Create(ctx, &model.ChatSession{UserID: "u1", Title: "s"}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := repo.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != ChatSessionListLimit {
		t.Fatalf("list len = %d", len(list))
	}
}

func TestChatSessionAppendConflict(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewChatSessionRepository(db)

	s := &model.ChatSession{UserID: "u1"}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatal(err)
	}

	err := db.Callback().Update().Before("gorm:update").Register("test:chat_conflict", func(tx *gorm.DB) {
		if tx.Statement.Table == "chat_sessions" {
			tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE chat_sessions SET version = version + 1")
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = repo.AppendMessages(ctx, s.ID, "u1", model.ChatMessage{ID: "m1", Role: model.ChatRoleUser, Content: "hi"})
	if !errors.Is(err, util.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, _ := repo.FindByIDAndUserID(ctx, s.ID, "u1")
	if len(got.Messages) != 0 {
		t.Fatalf("conflicting append must roll back: %+v", got.Messages)
	}
}
