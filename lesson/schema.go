package lesson

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"
)

// lessonPayload is the wire shape the model is asked to produce. The ID and
// timestamps are ours, not the model's.
type lessonPayload struct {
	Title      string  `json:"title"`
	Topic      string  `json:"topic"`
	Vocabulary []Vocab `json:"vocabulary"`
}

type analysisPayload struct {
	Feedback string `json:"feedback"`
}

var (
	lessonSchema   = mustSchemaFor[lessonPayload]()
	analysisSchema = mustSchemaFor[analysisPayload]()
)

func mustSchemaFor[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		panic(err)
	}
	return s
}

// convSchema converts a jsonschema-go schema into the Gemini response schema
// type. Only the subset the API understands is carried over.
func convSchema(schema *jsonschema.Schema) *genai.Schema {
	if schema == nil {
		return nil
	}

	enums := make([]string, 0, len(schema.Enum))
	for _, v := range schema.Enum {
		enums = append(enums, fmt.Sprintf("%v", v))
	}

	gs := genai.Schema{
		Format:      schema.Format,
		Description: schema.Description,
		Enum:        enums,
		Items:       convSchema(schema.Items),
		Required:    schema.Required,
	}

	if n := len(schema.Properties); n > 0 {
		gs.Properties = make(map[string]*genai.Schema, n)
		for k, prop := range schema.Properties {
			gs.Properties[k] = convSchema(prop)
		}
	}
	switch schema.Type {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	return &gs
}
