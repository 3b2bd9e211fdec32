package repository

import (
	"context"
	"errors"
	"testing"

	"study_buddy_backend/internal/testutil"
	"study_buddy_backend/internal/util"
)

func TestQuizRepositoryOwnerScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository(testutil.DB(t))

	quiz := testutil.Quiz("owner", "Math", "Algebra", "Geometry")
	if err := repo.Create(ctx, quiz); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if quiz.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := repo.FindByIDAndUserID(ctx, quiz.ID, "owner")
	if err != nil {
		t.Fatalf("FindByIDAndUserID: %v", err)
	}
	if len(got.Questions) != 2 || got.Questions[1].Topic != "Geometry" {
		t.Fatalf("questions not persisted: %+v", got.Questions)
	}

	if _, err := repo.FindByIDAndUserID(ctx, quiz.ID, "intruder"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}

	list, err := repo.ListByUser(ctx, "owner")
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, err = %v", list, err)
	}
}
