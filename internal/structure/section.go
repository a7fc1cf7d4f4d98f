// Package structure segments a linear book text into chapters and
// subsections by conversing with a chat model, checkpointing every accepted
// chapter to an append-only log.
package structure

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/thywilljoshua/bookingest/internal/ai"
)

// Section is one subsection of a chapter as returned by the model.
type Section struct {
	BookTitle       string `json:"bookTitle"`
	ChapterTitle    string `json:"chapterTitle"`
	SubsectionTitle string `json:"subsectionTitle"`
	Content         string `json:"content"`
}

// CompletionSentinel is the phrase the model answers with once the book has
// no further chapters.
const CompletionSentinel = "END_OF_BOOK"

// ErrMalformedReply is returned for replies that hold neither a valid section
// array nor the completion sentinel.
var ErrMalformedReply = errors.New("malformed model reply")

const sectionsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "bookTitle":       {"type": "string"},
      "chapterTitle":    {"type": "string", "minLength": 1},
      "subsectionTitle": {"type": "string"},
      "content":         {"type": "string"}
    },
    "required": ["chapterTitle", "subsectionTitle", "content"]
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("sections.json", strings.NewReader(sectionsSchema)); err != nil {
		return nil, fmt.Errorf("failed to load sections schema: %w", err)
	}
	return compiler.Compile("sections.json")
})

// ParseReply extracts the section records from a model reply. done reports a
// completion signal: the sentinel phrase or an empty array. A reply may carry
// a final chapter and the sentinel together.
func ParseReply(reply string) (records []Section, done bool, err error) {
	sentinel := strings.Contains(reply, CompletionSentinel)

	raw, ok := ai.ExtractJSONArray(reply)
	if !ok {
		if sentinel {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("%w: no JSON array found", ErrMalformedReply)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	schema, err := compiledSchema()
	if err != nil {
		return nil, false, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if len(records) == 0 {
		return nil, true, nil
	}
	return records, sentinel, nil
}

func sameChapter(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
