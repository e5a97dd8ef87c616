// Package exercise holds segmentation exercises and their per-exercise
// answering state.
package exercise

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mchmarny/duanju/pkg/segment"
)

// State of an exercise. Submitted is never terminal, a reset always returns
// to InProgress.
type State int

const (
	StateUnstarted State = iota
	StateInProgress
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateInProgress:
		return "in-progress"
	case StateSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrNotSubmitted = errors.New("exercise has not been submitted")

// Modes maps each source to the way its answers are scored.
type Modes map[Source]segment.Mode

// DefaultModes scores manual sets by slash breaks and AI sets by text.
func DefaultModes() Modes {
	return Modes{
		SourceManual: {Strategy: segment.StrategySlash, Comparison: segment.ComparisonSet},
		SourceAI:     {Strategy: segment.StrategyPunct, Comparison: segment.ComparisonText},
	}
}

// Exercise is one sentence being segmented by a learner.
type Exercise struct {
	Record
	Source Source

	chars  []string
	breaks map[int]bool
	state  State
	result *segment.Result
	stale  bool
}

// New builds an exercise from a validated record.
func New(r Record, src Source) (*Exercise, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &Exercise{
		Record: r,
		Source: src,
		chars:  segment.Chars(r.Content),
		breaks: make(map[int]bool),
	}, nil
}

// Chars are the sentence characters; gap i follows Chars()[i].
func (e *Exercise) Chars() []string {
	return e.chars
}

func (e *Exercise) State() State {
	return e.state
}

// Start moves an unstarted exercise to in-progress.
func (e *Exercise) Start() {
	if e.state == StateUnstarted {
		e.state = StateInProgress
	}
}

// Toggle flips the break after character i. A toggle after submission keeps
// the previous result but marks it stale until the next Submit.
func (e *Exercise) Toggle(i int) error {
	if err := segment.CheckIndex(i, len(e.chars)); err != nil {
		return err
	}
	e.Start()

	if e.breaks[i] {
		delete(e.breaks, i)
	} else {
		e.breaks[i] = true
	}

	if e.state == StateSubmitted {
		e.stale = true
	}
	return nil
}

// Breaks returns the current break set, sorted.
func (e *Exercise) Breaks() []int {
	list := make([]int, 0, len(e.breaks))
	for i := range e.breaks {
		list = append(list, i)
	}
	slices.Sort(list)
	return list
}

// Submit scores the current breaks and stores the result.
func (e *Exercise) Submit(s *segment.Scorer, modes Modes) segment.Result {
	m, ok := modes[e.Source]
	if !ok {
		m = DefaultModes()[e.Source]
	}

	r := s.Score(e.chars, e.Answer, e.Breaks(), m)
	e.result = &r
	e.state = StateSubmitted
	e.stale = false
	return r
}

// Result returns the last submission result.
func (e *Exercise) Result() (segment.Result, error) {
	if e.result == nil {
		return segment.Result{}, ErrNotSubmitted
	}
	return *e.result, nil
}

// Stale reports whether breaks changed since the last submission.
func (e *Exercise) Stale() bool {
	return e.stale
}

// Reset clears breaks and result and returns to in-progress.
func (e *Exercise) Reset() {
	e.breaks = make(map[int]bool)
	e.result = nil
	e.stale = false
	e.state = StateInProgress
}

// Text renders the sentence with the current breaks.
func (e *Exercise) Text(marker string) string {
	return segment.TextFromBreaks(e.chars, e.Breaks(), marker)
}
