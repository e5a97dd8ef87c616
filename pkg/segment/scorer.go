package segment

// Comparison selects how a submission is judged.
type Comparison string

const (
	// ComparisonSet compares normalized break sets.
	ComparisonSet Comparison = "set"
	// ComparisonText compares the rebuilt text against the answer.
	ComparisonText Comparison = "text"
)

// Mode pairs the answer encoding with the comparison used for an exercise
// source.
type Mode struct {
	Strategy   Strategy   `json:"strategy" yaml:"strategy"`
	Comparison Comparison `json:"comparison" yaml:"comparison"`
}

// Scorer judges submissions. The zero value applies no text rules.
type Scorer struct {
	Rules  TextRules
	Marker string
}

// NewScorer returns a Scorer using the text rules and the marker glyph.
func NewScorer(rules TextRules, marker string) *Scorer {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Scorer{Rules: rules, Marker: marker}
}

// Score judges breaks for sentence against answer under mode m. A reference
// answer that cannot be aligned with the sentence yields an unverifiable
// result, never an incorrect one.
func (s *Scorer) Score(sentence []string, answer string, breaks []int, m Mode) Result {
	if m.Comparison == ComparisonText {
		return CompareText(sentence, breaks, answer, s.Rules, s.Marker)
	}

	canonical, err := CanonicalBreaks(sentence, answer, m.Strategy)
	if err != nil {
		return unverifiable(breaks, len(sentence), err)
	}
	return Compare(breaks, canonical, len(sentence))
}
