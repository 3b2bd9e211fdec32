package repository

import (
	"context"
	"errors"
	"testing"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/testutil"
	"study_buddy_backend/internal/util"
)

func TestMaterialRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMaterialRepository(testutil.DB(t))

	m := &model.StudyMaterial{UserID: "u1", Title: "Notes", Subject: "Math", Type: model.MaterialNotes, Tags: []string{"algebra"}, ObjectKey: "u1/notes.txt", Size: 12}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.FindByIDAndUserID(ctx, m.ID, "u1")
	if err != nil || got.ObjectKey != "u1/notes.txt" {
		t.Fatalf("got %+v, err %v", got, err)
	}

	if err := repo.Delete(ctx, m.ID, "u2"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting other user's material, got %v", err)
	}
	if err := repo.Delete(ctx, m.ID, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, err := repo.ListByUser(ctx, "u1")
	if err != nil || len(list) != 0 {
		t.Fatalf("list after delete = %v, err = %v", list, err)
	}
}
