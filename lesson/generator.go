package lesson

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"google.golang.org/genai"

	"parlo/live"
)

// Generator produces lessons and session feedback from the Gemini text API.
type Generator struct {
	client *genai.Client
	model  string
}

func NewGenerator(client *genai.Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate asks the model for one new lesson.
func (g *Generator) Generate(ctx context.Context, native, target, level string) (*Lesson, error) {
	text, err := g.generate(ctx, generatePrompt(native, target, level), lessonSchema)
	if err != nil {
		return nil, fmt.Errorf("generate lesson: %w", err)
	}

	var p lessonPayload
	if err := repairUnmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("parse lesson: %w", err)
	}
	if err := validateLesson(&p); err != nil {
		return nil, fmt.Errorf("invalid lesson: %w", err)
	}

	return &Lesson{
		ID:         uuid.NewString(),
		Title:      p.Title,
		Topic:      p.Topic,
		Level:      level,
		Vocabulary: p.Vocabulary,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Analyze asks the model for written feedback on a finished session. The
// feedback is phrased in the learner's native language.
func (g *Generator) Analyze(ctx context.Context, lessonID, native string, transcript []live.Entry) (*Analysis, error) {
	if len(transcript) == 0 {
		return nil, errors.New("empty transcript")
	}

	text, err := g.generate(ctx, analysisPrompt(native, transcript), analysisSchema)
	if err != nil {
		return nil, fmt.Errorf("analyze session: %w", err)
	}

	var p analysisPayload
	if err := repairUnmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("parse feedback: %w", err)
	}
	if strings.TrimSpace(p.Feedback) == "" {
		return nil, errors.New("model returned empty feedback")
	}

	return &Analysis{
		ID:        uuid.NewString(),
		LessonID:  lessonID,
		Feedback:  p.Feedback,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (g *Generator) generate(ctx context.Context, prompt string, schema *jsonschema.Schema) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   convSchema(schema),
	}
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(prompt)}},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates")
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != genai.FinishReasonStop {
		return "", fmt.Errorf("unexpected finish reason: %s", cand.FinishReason)
	}

	var sb strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

func validateLesson(p *lessonPayload) error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("missing title")
	}
	if len(p.Vocabulary) == 0 {
		return errors.New("no vocabulary")
	}
	for i, v := range p.Vocabulary {
		if strings.TrimSpace(v.Word) == "" {
			return fmt.Errorf("vocabulary item %d has no word", i)
		}
	}
	return nil
}
