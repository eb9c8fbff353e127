// Package lesson generates conversation lessons and post-session feedback
// using the Gemini text API.
package lesson

import "time"

// Vocab is a single vocabulary item the tutor should work into the
// conversation.
type Vocab struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Example     string `json:"example"`
}

// Lesson is one generated conversation topic with target vocabulary.
type Lesson struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Topic      string    `json:"topic"`
	Level      string    `json:"level"`
	Vocabulary []Vocab   `json:"vocabulary"`
	CreatedAt  time.Time `json:"created_at"`
}

// Words returns just the vocabulary words, for display surfaces.
func (l *Lesson) Words() []string {
	words := make([]string, 0, len(l.Vocabulary))
	for _, v := range l.Vocabulary {
		words = append(words, v.Word)
	}
	return words
}

// Analysis is the tutor's written feedback on one finished session.
type Analysis struct {
	ID        string    `json:"id"`
	LessonID  string    `json:"lesson_id"`
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`
}
