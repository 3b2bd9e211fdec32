package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
)

func TestGenerateFlashcards(t *testing.T) {
	ctx := context.Background()
	assistant := &fakeAssistant{cards: []model.Flashcard{
		{Front: " Cell ", Back: "Basic unit of life"},
		{Front: "", Back: "orphan"},
		{Front: "Nucleus", Back: "Control center"},
	}}
	svc := NewStudyToolsService(newMaterialService(t), assistant)

	if _, err := svc.GenerateFlashcards(ctx, "u1", FlashcardRequest{}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected validation error without content, got %v", err)
	}
	if _, err := svc.GenerateFlashcards(ctx, "u1", FlashcardRequest{ContentRequest: ContentRequest{Content: "x"}, Count: MaxFlashcardCount + 1}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected validation error for count, got %v", err)
	}
	if assistant.callCount() != 0 {
		t.Fatal("invalid requests must not reach the assistant")
	}

	cards, err := svc.GenerateFlashcards(ctx, "u1", FlashcardRequest{ContentRequest: ContentRequest{Content: "cells"}})
	if err != nil {
		t.Fatal(err)
	}
	if assistant.lastCount != DefaultFlashcardCount {
		t.Fatalf("count = %d", assistant.lastCount)
	}
	if len(cards) != 2 || cards[0].Front != "Cell" {
		t.Fatalf("cards = %+v", cards)
	}

	cards, err = svc.GenerateFlashcards(ctx, "u1", FlashcardRequest{ContentRequest: ContentRequest{Content: "cells"}, Count: 1})
	if err != nil || len(cards) != 1 {
		t.Fatalf("cards = %+v, err = %v", cards, err)
	}
}

func TestSummarizeFromMaterial(t *testing.T) {
	ctx := context.Background()
	assistant := &fakeAssistant{}
	svc := NewStudyToolsService(newMaterialService(t), assistant)

	m, err := svc.Materials.Upload(ctx, "u1", UploadMaterialRequest{Title: "Cells"}, []byte("cells divide"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Summarize(ctx, "u1", SummaryRequest{ContentRequest: ContentRequest{MaterialID: m.ID, Content: "ignored"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Length != SummaryMedium || res.Summary != "summary of cells divide" {
		t.Fatalf("result = %+v", res)
	}

	if _, err := svc.Summarize(ctx, "u1", SummaryRequest{ContentRequest: ContentRequest{Content: "x"}, Length: "epic"}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	long := strings.Repeat("a", maxAssistantContext+10)
	if _, err := svc.Summarize(ctx, "u1", SummaryRequest{ContentRequest: ContentRequest{Content: long}, Length: SummaryShort}); err != nil {
		t.Fatal(err)
	}
	if len(assistant.lastContext) != maxAssistantContext || assistant.lastLength != SummaryShort {
		t.Fatalf("content len = %d, length = %q", len(assistant.lastContext), assistant.lastLength)
	}
}

func TestExplainConceptAndExtract(t *testing.T) {
	ctx := context.Background()
	assistant := &fakeAssistant{concepts: []string{"Cell", " cell ", "", "Nucleus"}}
	svc := NewStudyToolsService(nil, assistant)

	if _, err := svc.ExplainConcept(ctx, ExplainRequest{Concept: " "}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	res, err := svc.ExplainConcept(ctx, ExplainRequest{Concept: "Osmosis", Context: "biology class"})
	if err != nil || res.Explanation != "Osmosis explained" || assistant.lastContext != "biology class" {
		t.Fatalf("explain = %+v, %v", res, err)
	}

	concepts, err := svc.ExtractKeyConcepts(ctx, "u1", ContentRequest{Content: "cells"})
	if err != nil {
		t.Fatal(err)
	}
	if len(concepts) != 2 || concepts[0] != "Cell" || concepts[1] != "Nucleus" {
		t.Fatalf("concepts = %v", concepts)
	}

	if _, err := svc.ExtractKeyConcepts(ctx, "u1", ContentRequest{MaterialID: "m1"}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected validation error without material service, got %v", err)
	}

	assistant.fail(util.Upstream("ai", errors.New("down")))
	if _, err := svc.ExtractKeyConcepts(ctx, "u1", ContentRequest{Content: "cells"}); !errors.Is(err, util.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
