package lesson

import (
	"strings"
	"testing"

	"parlo/live"
)

func TestSystemInstructionNamesTopicAndVocabulary(t *testing.T) {
	vocab := []Vocab{
		{Word: "la cuenta", Translation: "the bill"},
		{Word: "pedir", Translation: "to order"},
	}
	got := BuildSystemInstruction("English", "Spanish", "Ordering at a restaurant", vocab)

	for _, want := range []string{
		"Spanish tutor",
		"native language is English",
		"Ordering at a restaurant",
		"la cuenta (the bill)",
		"pedir (to order)",
		"asking a question",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("instruction missing %q\n%s", want, got)
		}
	}
}

func TestSystemInstructionWithoutVocabulary(t *testing.T) {
	got := BuildSystemInstruction("English", "French", "Small talk", nil)
	if strings.Contains(got, "these words") {
		t.Errorf("vocab section rendered with no vocab:\n%s", got)
	}
}

func TestGeneratePromptMentionsLanguagesAndLevel(t *testing.T) {
	got := generatePrompt("English", "Italian", "beginner")
	for _, want := range []string{"Italian", "English speaker", "beginner", "JSON"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q\n%s", want, got)
		}
	}
}

func TestAnalysisPromptIncludesTranscript(t *testing.T) {
	got := analysisPrompt("English", []live.Entry{
		{Speaker: live.RoleUser, Text: "Yo quiero un cafe"},
		{Speaker: live.RoleModel, Text: "¡Claro! ¿Con leche?"},
	})
	for _, want := range []string{
		"user: Yo quiero un cafe",
		"model: ¡Claro! ¿Con leche?",
		"feedback for the learner in English",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q\n%s", want, got)
		}
	}
}
