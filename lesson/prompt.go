package lesson

import (
	"fmt"
	"strings"

	"parlo/live"
)

// BuildSystemInstruction renders the live tutor persona for one lesson. The
// result is sent once in the session setup message.
func BuildSystemInstruction(native, target, title string, vocab []Vocab) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a friendly %s tutor holding a spoken conversation practice session.\n", target)
	fmt.Fprintf(&b, "The learner's native language is %s.\n", native)
	fmt.Fprintf(&b, "Today's topic: %s.\n", title)
	if len(vocab) > 0 {
		b.WriteString("Work these words into the conversation and encourage the learner to use them:\n")
		for _, v := range vocab {
			fmt.Fprintf(&b, "- %s (%s)\n", v.Word, v.Translation)
		}
	}
	fmt.Fprintf(&b, "Speak %s. Keep each response to one or two short sentences.\n", target)
	fmt.Fprintf(&b, "If the learner is stuck, offer a short hint in %s.\n", native)
	b.WriteString("Gently rephrase mistakes instead of lecturing about them.\n")
	b.WriteString("Open the session by greeting the learner and asking a question about the topic.")
	return b.String()
}

func generatePrompt(native, target, level string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create one %s conversation lesson for a %s speaker at %s level.\n", target, native, level)
	b.WriteString("Pick a concrete everyday situation the learner could actually end up in.\n")
	fmt.Fprintf(&b, "Include 6 vocabulary items. For each give the %s word, its %s translation, and one short example sentence in %s.\n", target, native, target)
	b.WriteString("Respond with JSON only: {\"title\", \"topic\", \"vocabulary\": [{\"word\", \"translation\", \"example\"}]}.")
	return b.String()
}

func analysisPrompt(native string, transcript []live.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a language teacher reviewing a practice conversation. Write feedback for the learner in %s:\n", native)
	b.WriteString("name one thing they did well, list up to three concrete corrections with the fixed phrasing, and end with one sentence of encouragement.\n")
	b.WriteString("Respond with JSON only: {\"feedback\": \"...\"}.\n\nTranscript:\n")
	for _, e := range transcript {
		fmt.Fprintf(&b, "%s: %s\n", e.Speaker, e.Text)
	}
	return b.String()
}
