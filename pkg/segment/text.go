package segment

import (
	"sort"
	"strings"
)

// Folding maps glyphs onto one another before answers are compared as text.
// Some answer sources use marks interchangeably while the learner only ever
// places one marker glyph.
type Folding map[string]string

// DefaultFolding folds the ideographic question mark onto the comma.
func DefaultFolding() Folding {
	return Folding{"？": "，"}
}

// Apply replaces every folded glyph in s.
func (f Folding) Apply(s string) string {
	if len(f) == 0 {
		return s
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, f[k])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// TextRules are the normalization steps applied to both sides of a text
// comparison. Whitespace is always removed.
type TextRules struct {
	Folding Folding `json:"folding" yaml:"folding"`
	// TrimTrailingMarks drops marks after the final character; no break
	// can be placed there.
	TrimTrailingMarks bool `json:"trim_trailing_marks" yaml:"trim_trailing_marks"`
}

// DefaultTextRules folds ？ onto ， and trims trailing marks.
func DefaultTextRules() TextRules {
	return TextRules{Folding: DefaultFolding(), TrimTrailingMarks: true}
}

// Normalize prepares an answer text for comparison.
func (t TextRules) Normalize(s string) string {
	s = t.Folding.Apply(stripSpace(s))
	if !t.TrimTrailingMarks {
		return s
	}
	chars := Chars(s)
	end := len(chars)
	for end > 0 && IsMark(chars[end-1]) {
		end--
	}
	return strings.Join(chars[:end], "")
}

// Equal reports whether two segmented texts are the same once normalized.
func (t TextRules) Equal(user, canonical string) bool {
	return t.Normalize(user) == t.Normalize(canonical)
}

// CompareText is the text comparison mode: the user's breaks are rendered
// into the sentence with marker and the result is compared to the punctuated
// answer. Diagnostics come from the gaps implied by the folded answer.
func CompareText(sentence []string, user []int, answer string, rules TextRules, marker string) Result {
	n := len(sentence)
	canonical, err := CanonicalBreaks(sentence, rules.Folding.Apply(answer), StrategyPunct)
	if err != nil {
		return unverifiable(user, n, err)
	}

	if marker == "" {
		marker = DefaultMarker
	}

	u, ignored := Normalize(user, n)
	r := Result{
		IsCorrect:       rules.Equal(TextFromBreaks(sentence, u, marker), answer),
		UserBreaks:      u,
		CanonicalBreaks: canonical,
		Missing:         difference(canonical, u),
		Extra:           difference(u, canonical),
		Ignored:         ignored,
	}
	r.Verdict = verdictOf(r.IsCorrect)
	return r
}
