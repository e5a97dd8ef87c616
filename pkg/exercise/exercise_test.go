package exercise

import (
	"testing"

	"github.com/mchmarny/duanju/pkg/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manualRecord() Record {
	return Record{
		ID:      4,
		Content: "见渔人乃大惊问所从来具答之",
		Answer:  "见渔人/乃大惊/问所从来/具答之",
	}
}

func newTestExercise(t *testing.T, src Source, r Record) *Exercise {
	t.Helper()
	e, err := New(r, src)
	require.NoError(t, err)
	return e
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Record{ID: 1}, SourceManual)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestExercise_Lifecycle(t *testing.T) {
	s := segment.NewScorer(segment.DefaultTextRules(), "")
	e := newTestExercise(t, SourceManual, manualRecord())
	assert.Equal(t, StateUnstarted, e.State())
	assert.Len(t, e.Chars(), 13)

	_, err := e.Result()
	assert.ErrorIs(t, err, ErrNotSubmitted)

	e.Start()
	assert.Equal(t, StateInProgress, e.State())

	for _, i := range []int{2, 5} {
		require.NoError(t, e.Toggle(i))
	}
	r := e.Submit(s, DefaultModes())
	assert.Equal(t, StateSubmitted, e.State())
	assert.False(t, r.IsCorrect)
	assert.Equal(t, []int{9}, r.Missing)

	// toggling after submission leaves the verdict alone until resubmitted
	require.NoError(t, e.Toggle(9))
	assert.True(t, e.Stale())
	last, err := e.Result()
	require.NoError(t, err)
	assert.False(t, last.IsCorrect)

	r = e.Submit(s, DefaultModes())
	assert.True(t, r.IsCorrect)
	assert.False(t, e.Stale())

	e.Reset()
	assert.Equal(t, StateInProgress, e.State())
	assert.Empty(t, e.Breaks())
	_, err = e.Result()
	assert.ErrorIs(t, err, ErrNotSubmitted)
}

func TestExercise_ToggleImplicitStartAndOff(t *testing.T) {
	e := newTestExercise(t, SourceManual, manualRecord())
	require.NoError(t, e.Toggle(3))
	assert.Equal(t, StateInProgress, e.State())
	assert.Equal(t, []int{3}, e.Breaks())

	require.NoError(t, e.Toggle(3))
	assert.Empty(t, e.Breaks())
}

func TestExercise_ToggleInvalidIndex(t *testing.T) {
	e := newTestExercise(t, SourceManual, manualRecord())
	assert.ErrorIs(t, e.Toggle(12), segment.ErrInvalidIndex)
	assert.ErrorIs(t, e.Toggle(-1), segment.ErrInvalidIndex)
	assert.Equal(t, StateUnstarted, e.State())
	assert.Empty(t, e.Breaks())
}

func TestExercise_AISourceUsesTextComparison(t *testing.T) {
	r := manualRecord()
	r.Answer = "见渔人，乃大惊？问所从来，具答之。"
	e := newTestExercise(t, SourceAI, r)
	for _, i := range []int{9, 2, 5} {
		require.NoError(t, e.Toggle(i))
	}
	res := e.Submit(segment.NewScorer(segment.DefaultTextRules(), ""), DefaultModes())
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "见渔人，乃大惊，问所从来，具答之", e.Text(segment.DefaultMarker))
}

func TestExercise_BadReferenceIsUnverifiable(t *testing.T) {
	r := manualRecord()
	r.Answer = "见渔人/乃大喜/问所从来/具答之"
	e := newTestExercise(t, SourceManual, r)
	require.NoError(t, e.Toggle(2))
	res := e.Submit(segment.NewScorer(segment.TextRules{}, ""), DefaultModes())
	assert.Equal(t, segment.VerdictUnverifiable, res.Verdict)
}

func TestExercise_MissingModeFallsBackToDefault(t *testing.T) {
	e := newTestExercise(t, SourceManual, manualRecord())
	for _, i := range []int{2, 5, 9} {
		require.NoError(t, e.Toggle(i))
	}
	res := e.Submit(segment.NewScorer(segment.TextRules{}, ""), Modes{})
	assert.True(t, res.IsCorrect)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unstarted", StateUnstarted.String())
	assert.Equal(t, "in-progress", StateInProgress.String())
	assert.Equal(t, "submitted", StateSubmitted.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestBatch(t *testing.T) {
	bad := Record{ID: 0, Content: "x", Answer: "x"}
	b, rejected := NewBatch(SourceManual, []Record{manualRecord(), bad})
	assert.Equal(t, 1, b.Len())
	assert.Len(t, rejected, 1)

	more := manualRecord()
	more.ID = 5
	assert.Empty(t, b.Append([]Record{more}))
	assert.Equal(t, 2, b.Len())

	s := segment.NewScorer(segment.TextRules{}, "")
	e := b.Exercises[0]
	for _, i := range []int{2, 5, 9} {
		require.NoError(t, e.Toggle(i))
	}
	e.Submit(s, DefaultModes())

	sum := b.Summary()
	assert.Equal(t, 2, sum["total"])
	assert.Equal(t, 1, sum["correct"])
	assert.Equal(t, 1, sum["unanswered"])
}
