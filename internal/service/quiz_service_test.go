package service

import (
	"context"
	"errors"
	"testing"

	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/testutil"
	"study_buddy_backend/internal/util"
)

func newQuizService(t *testing.T, gen *fakeGenerator) (*QuizService, *MaterialService) {
	t.Helper()
	db := testutil.DB(t)
	storage := &StorageService{Provider: &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: t.TempDir()}}}
	materials := NewMaterialService(repository.NewMaterialRepository(db), storage)
	return NewQuizService(repository.NewQuizRepository(db), repository.NewAttemptRepository(db), materials, gen), materials
}

func generatedQuestions() []model.QuizQuestion {
	return []model.QuizQuestion{
		{Question: "2+2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: 1, Topic: " Arithmetic "},
		{Question: "x+1=2?", Options: []string{"0", "1", "2", "3"}, CorrectAnswer: 1, Topic: "Algebra", Concepts: []string{"linear equations"}},
	}
}

func TestCreateQuiz(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuizService(t, &fakeGenerator{})

	quiz, err := svc.CreateQuiz(ctx, "u1", CreateQuizRequest{Title: "Basics", Questions: generatedQuestions()})
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if quiz.Difficulty != model.DifficultyMedium || quiz.Questions[0].ID != "q1" || quiz.Questions[0].Topic != "Arithmetic" {
		t.Fatalf("quiz = %+v", quiz)
	}

	got, err := svc.GetQuiz(ctx, "u1", quiz.ID)
	if err != nil || len(got.Questions) != 2 {
		t.Fatalf("GetQuiz = %+v, %v", got, err)
	}
	if _, err := svc.GetQuiz(ctx, "u2", quiz.ID); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	bad := []struct {
		name string
		req  CreateQuizRequest
	}{
		{"no title", CreateQuizRequest{Questions: generatedQuestions()}},
		{"no questions", CreateQuizRequest{Title: "x"}},
		{"bad difficulty", CreateQuizRequest{Title: "x", Difficulty: "extreme", Questions: generatedQuestions()}},
		{"answer out of range", CreateQuizRequest{Title: "x", Questions: []model.QuizQuestion{{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 2}}}},
		{"single option", CreateQuizRequest{Title: "x", Questions: []model.QuizQuestion{{Question: "q", Options: []string{"a"}}}}},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateQuiz(ctx, "u1", tc.req); !errors.Is(err, util.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGenerateQuizFromContent(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{questions: generatedQuestions()}
	svc, _ := newQuizService(t, gen)

	quiz, err := svc.GenerateQuiz(ctx, "u1", GenerateQuizRequest{Content: "Numbers and equations", Subject: "Math", Difficulty: model.DifficultyEasy})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if quiz.Title != "Math Quiz" || quiz.SourceContent != "Numbers and equations" || len(quiz.Questions) != 2 {
		t.Fatalf("quiz = %+v", quiz)
	}
	if gen.lastQuiz.Count != DefaultQuestionCount || gen.lastQuiz.Difficulty != model.DifficultyEasy {
		t.Fatalf("generator input = %+v", gen.lastQuiz)
	}

	list, err := svc.ListQuizzes(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListQuizzes = %d, %v", len(list), err)
	}
}

func TestGenerateQuizFromMaterial(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{questions: generatedQuestions()}
	svc, materials := newQuizService(t, gen)

	m, err := materials.Upload(ctx, "u1", UploadMaterialRequest{Title: "Chapter 1"}, []byte("Photosynthesis converts light into chemical energy."))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GenerateQuiz(ctx, "u1", GenerateQuizRequest{MaterialID: m.ID, Count: 2}); err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if gen.lastQuiz.Content != "Photosynthesis converts light into chemical energy." {
		t.Fatalf("content = %q", gen.lastQuiz.Content)
	}
	if _, err := svc.GenerateQuiz(ctx, "u2", GenerateQuizRequest{MaterialID: m.ID}); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user's material, got %v", err)
	}
}

func TestGenerateQuizFailures(t *testing.T) {
	ctx := context.Background()

	svc, _ := newQuizService(t, &fakeGenerator{questions: generatedQuestions()})
	if _, err := svc.GenerateQuiz(ctx, "u1", GenerateQuizRequest{}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected validation error without content, got %v", err)
	}
	if _, err := svc.GenerateQuiz(ctx, "u1", GenerateQuizRequest{Content: "x", Count: MaxQuestionCount + 1}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected validation error for count, got %v", err)
	}

	malformed := &fakeGenerator{questions: []model.QuizQuestion{{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 7}}}
	svc, _ = newQuizService(t, malformed)
	if _, err := svc.GenerateQuiz(ctx, "u1", GenerateQuizRequest{Content: "x"}); !errors.Is(err, util.ErrUpstream) {
		t.Fatalf("expected ErrUpstream for malformed output, got %v", err)
	}

	failing := &fakeGenerator{err: util.Upstream("ai", errors.New("timeout"))}
	svc, _ = newQuizService(t, failing)
	if _, err := svc.GenerateQuiz(ctx, "u1", GenerateQuizRequest{Content: "x"}); !errors.Is(err, util.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if list, _ := svc.ListQuizzes(ctx, "u1"); len(list) != 0 {
		t.Fatal("failed generation must not persist a quiz")
	}
}

func TestListAttempts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuizService(t, &fakeGenerator{})
	quiz, err := svc.CreateQuiz(ctx, "u1", CreateQuizRequest{Title: "Basics", Questions: generatedQuestions()})
	if err != nil {
		t.Fatal(err)
	}
	a := &model.QuizAttempt{QuizID: quiz.ID, UserID: "u1", Score: 1, TotalQuestions: 2, CompletedAt: testutil.Date(2024, 1, 1, 0)}
	if _, err := svc.AttemptRepo.Append(ctx, nil, a); err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListAttempts(ctx, "u1", quiz.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListAttempts = %d, %v", len(list), err)
	}
	if _, err := svc.ListAttempts(ctx, "u2", quiz.ID); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
