package segment

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSentence = "见渔人乃大惊问所从来具答之"
	testSlash    = "见渔人/乃大惊/问所从来/具答之"
)

func TestChars(t *testing.T) {
	assert.Equal(t, []string{"见", "渔", "人"}, Chars("见 渔\n人"))
	assert.Empty(t, Chars(""))
	assert.Empty(t, Chars(" \t　"))
}

func TestCanonicalBreaks_Slash(t *testing.T) {
	got, err := CanonicalBreaks(Chars(testSentence), testSlash, StrategySlash)
	require.NoError(t, err)
	if diff := cmp.Diff([]int{2, 5, 9}, got); diff != "" {
		t.Errorf("breaks mismatch (-want +got):\n%s", diff)
	}
}

func TestCanonicalBreaks_SlashWithSpaces(t *testing.T) {
	got, err := CanonicalBreaks(Chars(testSentence), " 见渔人 / 乃大惊/问所从来 /具答之 ", StrategySlash)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 9}, got)
}

func TestCanonicalBreaks_SlashEdges(t *testing.T) {
	chars := Chars("徐公来孰视之")
	tests := []struct {
		name   string
		answer string
		want   []int
	}{
		{"leading slash", "/徐公来/孰视之", []int{2}},
		{"trailing slash", "徐公来/孰视之/", []int{2}},
		{"double slash", "徐公来//孰视之", []int{2}},
		{"no slash", "徐公来孰视之", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalBreaks(chars, tt.answer, StrategySlash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalBreaks_Punct(t *testing.T) {
	got, err := CanonicalBreaks(Chars(testSentence), "见渔人，乃大惊，问所从来。具答之。", StrategyPunct)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 9}, got)
}

func TestCanonicalBreaks_PunctConsecutiveMarks(t *testing.T) {
	chars := Chars("曰不足为外人道也")
	got, err := CanonicalBreaks(chars, "「曰：「不足为外人道也。」", StrategyPunct)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got)
}

func TestCanonicalBreaks_Mismatch(t *testing.T) {
	chars := Chars(testSentence)
	for _, s := range Strategies {
		t.Run(string(s), func(t *testing.T) {
			got, err := CanonicalBreaks(chars, "见渔人/乃大喜/问所从来/具答之", s)
			assert.Nil(t, got)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDataMismatch))

			var dm *DataMismatchError
			require.True(t, errors.As(err, &dm))
			assert.Equal(t, testSentence, dm.Sentence)
		})
	}
}

func TestCanonicalBreaks_SlashAnswerInPunctMode(t *testing.T) {
	_, err := CanonicalBreaks(Chars(testSentence), testSlash, StrategyPunct)
	assert.ErrorIs(t, err, ErrDataMismatch)
}

func TestCanonicalBreaks_UnknownStrategy(t *testing.T) {
	_, err := CanonicalBreaks(Chars(testSentence), testSlash, Strategy("regex"))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestCanonicalBreaks_RoundTrip(t *testing.T) {
	chars := Chars("徐公来孰视之自以为不如窥镜而自视")
	sets := [][]int{
		{},
		{0},
		{2, 5, 10},
		{0, 1, 2, 3},
		{14},
		{2, 5, 10, 14},
	}
	seps := map[Strategy]string{
		StrategySlash: SlashSeparator,
		StrategyPunct: "，",
	}
	for s, sep := range seps {
		for _, want := range sets {
			answer := TextFromBreaks(chars, want, sep)
			got, err := CanonicalBreaks(chars, answer, s)
			require.NoError(t, err, answer)
			assert.Equal(t, want, got, "%s: %s", s, answer)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy(" Slash ")
	require.NoError(t, err)
	assert.Equal(t, StrategySlash, s)

	s, err = ParseStrategy("punct")
	require.NoError(t, err)
	assert.Equal(t, StrategyPunct, s)

	_, err = ParseStrategy("")
	assert.Error(t, err)
}

func TestTextFromBreaks(t *testing.T) {
	chars := Chars("问所从来")
	assert.Equal(t, "问，所从来", TextFromBreaks(chars, []int{0}, "，"))
	// no marker after the final character
	assert.Equal(t, "问所从来", TextFromBreaks(chars, []int{3}, "，"))
	assert.Equal(t, "问/所/从来", TextFromBreaks(chars, []int{1, 0, 0}, "/"))
}

func TestCheckIndex(t *testing.T) {
	assert.NoError(t, CheckIndex(0, 3))
	assert.NoError(t, CheckIndex(1, 3))
	assert.ErrorIs(t, CheckIndex(2, 3), ErrInvalidIndex)
	assert.ErrorIs(t, CheckIndex(-1, 3), ErrInvalidIndex)
	assert.ErrorIs(t, CheckIndex(0, 1), ErrInvalidIndex)
}
