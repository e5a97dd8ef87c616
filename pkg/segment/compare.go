package segment

import (
	"slices"
)

// Verdict is the outcome of scoring one submission.
type Verdict string

const (
	VerdictCorrect      Verdict = "correct"
	VerdictIncorrect    Verdict = "incorrect"
	VerdictUnverifiable Verdict = "unverifiable"
)

// Result is the verdict of a submission plus diagnostics. Missing and Extra
// only explain the verdict, they never decide it.
type Result struct {
	Verdict         Verdict `json:"verdict" yaml:"verdict"`
	IsCorrect       bool    `json:"is_correct" yaml:"is_correct"`
	UserBreaks      []int   `json:"user_breaks" yaml:"user_breaks"`
	CanonicalBreaks []int   `json:"canonical_breaks" yaml:"canonical_breaks"`
	Missing         []int   `json:"missing" yaml:"missing"`
	Extra           []int   `json:"extra" yaml:"extra"`
	Ignored         []int   `json:"ignored,omitempty" yaml:"ignored,omitempty"`
	Reason          string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Verifiable is false when the reference answer was unusable.
func (r Result) Verifiable() bool {
	return r.Verdict != VerdictUnverifiable
}

// Normalize drops indices that are not gaps of an n character sentence,
// collapses duplicates and sorts. Dropped indices are returned in ignored.
func Normalize(breaks []int, n int) (valid, ignored []int) {
	valid = make([]int, 0, len(breaks))
	for _, b := range breaks {
		if CheckIndex(b, n) != nil {
			ignored = append(ignored, b)
			continue
		}
		valid = append(valid, b)
	}
	slices.Sort(valid)
	valid = slices.Compact(valid)

	if len(ignored) > 0 {
		slices.Sort(ignored)
		ignored = slices.Compact(ignored)
	}
	return valid, ignored
}

// Compare scores user breaks against canonical breaks for a sentence of n
// characters. Both sides are normalized first, so order and duplicates do
// not matter.
func Compare(user, canonical []int, n int) Result {
	u, ignored := Normalize(user, n)
	c, _ := Normalize(canonical, n)

	r := Result{
		IsCorrect:       slices.Equal(u, c),
		UserBreaks:      u,
		CanonicalBreaks: c,
		Missing:         difference(c, u),
		Extra:           difference(u, c),
		Ignored:         ignored,
	}
	r.Verdict = verdictOf(r.IsCorrect)
	return r
}

func unverifiable(user []int, n int, err error) Result {
	u, ignored := Normalize(user, n)
	r := Result{
		Verdict:         VerdictUnverifiable,
		UserBreaks:      u,
		CanonicalBreaks: []int{},
		Missing:         []int{},
		Extra:           []int{},
		Ignored:         ignored,
	}
	if err != nil {
		r.Reason = err.Error()
	}
	return r
}

func verdictOf(ok bool) Verdict {
	if ok {
		return VerdictCorrect
	}
	return VerdictIncorrect
}

// difference returns the members of a not in b. Both must be sorted.
func difference(a, b []int) []int {
	out := make([]int, 0)
	for _, v := range a {
		if _, found := slices.BinarySearch(b, v); !found {
			out = append(out, v)
		}
	}
	return out
}
