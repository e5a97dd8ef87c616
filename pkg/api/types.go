package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mchmarny/duanju/pkg/exercise"
)

const codeOK = "1"

// FlexString decodes from either a JSON string or a JSON number. The API is
// not consistent about ids and codes.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

type envelope[T any] struct {
	Code FlexString `json:"code"`
	Msg  string     `json:"msg"`
	Data T          `json:"data"`
}

func (e *envelope[T]) check(endpoint string) error {
	if strings.TrimSpace(e.Code.String()) != codeOK {
		return &APIError{Endpoint: endpoint, Code: e.Code.String(), Msg: e.Msg}
	}
	return nil
}

// APIError is a response whose envelope code is not success.
type APIError struct {
	Endpoint string
	Code     string
	Msg      string
}

func (e *APIError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("%s: code %s: %s", e.Endpoint, e.Code, msg)
}

// LockedError is returned when more questions were requested before the
// generate lock expired.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("question generation locked, retry in %s", e.RetryAfter.Round(time.Second))
}

// Step is one step of a segmentation skill.
type Step struct {
	Step    FlexString `json:"step" yaml:"step"`
	Content string     `json:"content,omitempty" yaml:"content,omitempty"`
}

// Skill is a segmentation technique with its own question sets.
type Skill struct {
	ID          FlexString `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step     `json:"steps,omitempty" yaml:"steps,omitempty"`
}

type generateRequest struct {
	SkillID FlexString `json:"skill_id"`
}

type questionList struct {
	List []exercise.Record `json:"exerciseQuestionsList"`
}

// UnmarshalJSON decodes each question on its own so one malformed entry
// does not discard the rest of the list.
func (q *questionList) UnmarshalJSON(b []byte) error {
	var raw struct {
		List []json.RawMessage `json:"exerciseQuestionsList"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	q.List = make([]exercise.Record, 0, len(raw.List))
	for _, m := range raw.List {
		var r exercise.Record
		if err := json.Unmarshal(m, &r); err != nil {
			slog.Warn("dropping undecodable question from API", "error", err)
			continue
		}
		q.List = append(q.List, r)
	}
	return nil
}

// AnswerRecord is one submission reported to the API.
type AnswerRecord struct {
	QuestionID int64
	Source     exercise.Source
	Breaks     []int
	Correct    bool
}

type answerRequest struct {
	QuestionID   int64  `json:"questionId"`
	QuestionType string `json:"questionType"`
	UserAnswer   string `json:"userAnswer"`
	IsCorrect    int    `json:"isCorrect"`
}

func (a AnswerRecord) request() (*answerRequest, error) {
	breaks := a.Breaks
	if breaks == nil {
		breaks = []int{}
	}
	b, err := json.Marshal(breaks)
	if err != nil {
		return nil, fmt.Errorf("encoding user answer: %w", err)
	}
	r := &answerRequest{
		QuestionID:   a.QuestionID,
		QuestionType: string(a.Source),
		UserAnswer:   string(b),
	}
	if a.Correct {
		r.IsCorrect = 1
	}
	return r, nil
}
