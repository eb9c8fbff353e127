package store

import (
	"context"
	"testing"
	"time"

	"parlo/lesson"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLessonRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	l := &lesson.Lesson{
		ID:    "l1",
		Title: "At the bakery",
		Topic: "Buying bread and pastries",
		Level: "beginner",
		Vocabulary: []lesson.Vocab{
			{Word: "el pan", Translation: "the bread", Example: "Quiero el pan."},
		},
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := s.WriteLesson(ctx, l); err != nil {
		t.Fatal(err)
	}

	got, err := s.Lesson(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Title != l.Title || len(got.Vocabulary) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got.Vocabulary[0].Word != "el pan" {
		t.Errorf("vocab = %+v", got.Vocabulary)
	}
}

func TestLessonAbsent(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Lesson(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestReadAllNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	for _, l := range []*lesson.Lesson{
		{ID: "a", Title: "first", CreatedAt: older},
		{ID: "b", Title: "second", CreatedAt: newer},
	} {
		if err := s.WriteLesson(ctx, l); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.WriteAnalysis(ctx, &lesson.Analysis{ID: "x", LessonID: "a", Feedback: "good", CreatedAt: older}); err != nil {
		t.Fatal(err)
	}

	lessons, analyses, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lessons) != 2 || lessons[0].ID != "b" || lessons[1].ID != "a" {
		t.Fatalf("lessons = %+v", lessons)
	}
	if len(analyses) != 1 || analyses[0].Feedback != "good" {
		t.Fatalf("analyses = %+v", analyses)
	}
}

func TestDeleteLesson(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteLesson(ctx, &lesson.Lesson{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteLesson(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Lesson(ctx, "a")
	if err != nil || got != nil {
		t.Fatalf("got %+v, err %v", got, err)
	}
	if err := s.DeleteLesson(ctx, "missing"); err != nil {
		t.Errorf("deleting absent id: %v", err)
	}
}

func TestClearAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteLesson(ctx, &lesson.Lesson{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	lessons, analyses, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lessons) != 0 || len(analyses) != 0 {
		t.Fatalf("store not empty: %d lessons, %d analyses", len(lessons), len(analyses))
	}
}
