package exercise

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Source tags where an exercise came from. It decides how the exercise is
// scored.
type Source string

const (
	// SourceManual are curated per-skill questions with slash answers.
	SourceManual Source = "manual"
	// SourceAI are generated questions with punctuated answers.
	SourceAI Source = "ai"
)

// Sources lists the known sources.
var Sources = []Source{SourceManual, SourceAI}

var ErrInvalidRecord = errors.New("invalid exercise record")

// ParseSource maps a name to a Source.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceManual:
		return SourceManual, nil
	case SourceAI:
		return SourceAI, nil
	default:
		return "", fmt.Errorf("unknown exercise source %q (expected %s or %s)", s, SourceManual, SourceAI)
	}
}

// Record is one question as served by the API. ID, Content and Answer are
// required; anything else the API sends that has no field lands in Meta.
type Record struct {
	ID         int64          `json:"id" yaml:"id"`
	Content    string         `json:"content" yaml:"content"`
	Answer     string         `json:"answer" yaml:"answer"`
	Analysis   string         `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Difficulty string         `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	SourceText string         `json:"source_text,omitempty" yaml:"source_text,omitempty"`
	Positions  []int          `json:"positions,omitempty" yaml:"positions,omitempty"`
	Meta       map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Validate checks the required fields.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil", ErrInvalidRecord)
	}
	if r.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidRecord, r.ID)
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: id %d has no content", ErrInvalidRecord, r.ID)
	}
	if strings.TrimSpace(r.Answer) == "" {
		return fmt.Errorf("%w: id %d has no answer", ErrInvalidRecord, r.ID)
	}
	return nil
}

var recordFields = []string{"id", "content", "answer", "analysis", "difficulty", "source_text", "positions", "meta"}

// UnmarshalJSON decodes the known fields and keeps every other top level
// field in Meta.
func (r *Record) UnmarshalJSON(b []byte) error {
	type plain Record
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decoding exercise record: %w", err)
	}
	p := raw.plain
	id, err := parseID(raw.ID)
	if err != nil {
		return err
	}
	p.ID = id

	var all map[string]any
	if err := json.Unmarshal(b, &all); err != nil {
		return fmt.Errorf("decoding exercise record fields: %w", err)
	}
	for _, k := range recordFields {
		delete(all, k)
	}
	if len(all) > 0 {
		if p.Meta == nil {
			p.Meta = make(map[string]any, len(all))
		}
		for k, v := range all {
			p.Meta[k] = v
		}
	}

	*r = Record(p)
	return nil
}

// parseID accepts ids sent either as JSON numbers or as numeric strings.
func parseID(raw json.RawMessage) (int64, error) {
	v := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if v == "" || v == "null" {
		return 0, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %s is not an integer", ErrInvalidRecord, string(raw))
	}
	return id, nil
}
