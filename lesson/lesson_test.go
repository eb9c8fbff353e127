package lesson

import (
	"testing"

	"google.golang.org/genai"
)

func TestRepairUnmarshalCleanJSON(t *testing.T) {
	var p lessonPayload
	err := repairUnmarshal([]byte(`{"title":"Café","topic":"food","vocabulary":[]}`), &p)
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Café" {
		t.Errorf("title = %q", p.Title)
	}
}

func TestRepairUnmarshalNearJSON(t *testing.T) {
	// Fenced output with a trailing comma, the way models actually misbehave.
	raw := "```json\n{\"title\": \"At the market\", \"topic\": \"shopping\", \"vocabulary\": [\n{\"word\": \"manzana\", \"translation\": \"apple\", \"example\": \"Una manzana, por favor.\"},\n]}\n```"

	var p lessonPayload
	if err := repairUnmarshal([]byte(raw), &p); err != nil {
		t.Fatal(err)
	}
	if p.Title != "At the market" {
		t.Errorf("title = %q", p.Title)
	}
	if len(p.Vocabulary) != 1 || p.Vocabulary[0].Word != "manzana" {
		t.Errorf("vocabulary = %+v", p.Vocabulary)
	}
}

func TestRepairUnmarshalTypeMismatch(t *testing.T) {
	// Valid JSON that does not fit the type is a real error, not repairable.
	var p lessonPayload
	if err := repairUnmarshal([]byte(`{"title": 7}`), &p); err == nil {
		t.Fatal("expected an error")
	}
}

func TestValidateLesson(t *testing.T) {
	good := &lessonPayload{Title: "T", Vocabulary: []Vocab{{Word: "w"}}}
	if err := validateLesson(good); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
	if err := validateLesson(&lessonPayload{Vocabulary: []Vocab{{Word: "w"}}}); err == nil {
		t.Error("missing title accepted")
	}
	if err := validateLesson(&lessonPayload{Title: "T"}); err == nil {
		t.Error("empty vocabulary accepted")
	}
	if err := validateLesson(&lessonPayload{Title: "T", Vocabulary: []Vocab{{Word: "  "}}}); err == nil {
		t.Error("blank word accepted")
	}
}

func TestLessonResponseSchema(t *testing.T) {
	s := convSchema(lessonSchema)
	if s == nil || s.Type != genai.TypeObject {
		t.Fatalf("schema = %+v", s)
	}
	vocab, ok := s.Properties["vocabulary"]
	if !ok || vocab.Type != genai.TypeArray {
		t.Fatalf("vocabulary schema = %+v", vocab)
	}
	item := vocab.Items
	if item == nil || item.Type != genai.TypeObject {
		t.Fatalf("vocabulary item schema = %+v", item)
	}
	for _, field := range []string{"word", "translation", "example"} {
		if prop, ok := item.Properties[field]; !ok || prop.Type != genai.TypeString {
			t.Errorf("item field %q schema = %+v", field, prop)
		}
	}
}

func TestWords(t *testing.T) {
	l := &Lesson{Vocabulary: []Vocab{{Word: "uno"}, {Word: "dos"}}}
	words := l.Words()
	if len(words) != 2 || words[0] != "uno" || words[1] != "dos" {
		t.Errorf("words = %v", words)
	}
}
