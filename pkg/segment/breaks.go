package segment

import (
	"slices"
	"strings"
)

// Strategy names the encoding used by a canonical answer.
type Strategy string

const (
	// StrategySlash reads answers like "见渔人/乃大惊". The break for a
	// boundary is the cumulative character count through the segment minus
	// one, i.e. the gap right after the segment's last character.
	StrategySlash Strategy = "slash"

	// StrategyPunct reads answers with inline marks like "见渔人，乃大惊。".
	// Each mark breaks the gap after the character preceding it.
	StrategyPunct Strategy = "punct"
)

// Strategies lists the supported strategies.
var Strategies = []Strategy{StrategySlash, StrategyPunct}

// ParseStrategy maps a name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	v := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Strategies, v) {
		return "", ErrUnknownStrategy
	}
	return v, nil
}

// CanonicalBreaks derives the reference gap indices of sentence from answer.
// When the answer stripped of separators differs from the sentence it
// returns nil and a *DataMismatchError; no realignment is attempted.
func CanonicalBreaks(sentence []string, answer string, strategy Strategy) ([]int, error) {
	switch strategy {
	case StrategySlash:
		return slashBreaks(sentence, answer)
	case StrategyPunct:
		return punctBreaks(sentence, answer)
	default:
		return nil, ErrUnknownStrategy
	}
}

func slashBreaks(sentence []string, answer string) ([]int, error) {
	n := len(sentence)
	segments := strings.Split(stripSpace(answer), SlashSeparator)

	var stripped strings.Builder
	breaks := make([]int, 0, len(segments))
	count := 0
	for i, seg := range segments {
		chars := Chars(seg)
		count += len(chars)
		stripped.WriteString(strings.Join(chars, ""))

		if i == len(segments)-1 {
			break
		}
		// empty segments and a boundary after the final character carry no gap
		if count == 0 || count >= n {
			continue
		}
		if len(breaks) > 0 && breaks[len(breaks)-1] == count-1 {
			continue
		}
		breaks = append(breaks, count-1)
	}

	if err := checkStripped(sentence, stripped.String()); err != nil {
		return nil, err
	}
	return breaks, nil
}

func punctBreaks(sentence []string, answer string) ([]int, error) {
	n := len(sentence)

	var stripped strings.Builder
	breaks := make([]int, 0)
	count := 0
	for _, g := range Chars(answer) {
		if !IsMark(g) {
			count++
			stripped.WriteString(g)
			continue
		}
		if count == 0 || count >= n {
			continue
		}
		if len(breaks) > 0 && breaks[len(breaks)-1] == count-1 {
			continue
		}
		breaks = append(breaks, count-1)
	}

	if err := checkStripped(sentence, stripped.String()); err != nil {
		return nil, err
	}
	return breaks, nil
}

func checkStripped(sentence []string, stripped string) error {
	text := strings.Join(sentence, "")
	if text != stripped {
		return &DataMismatchError{Sentence: text, Stripped: stripped}
	}
	return nil
}

// TextFromBreaks builds an answer for sentence with sep placed after every gap in
// breaks. Indices outside the sentence gaps are skipped.
func TextFromBreaks(sentence []string, breaks []int, sep string) string {
	set := make(map[int]bool, len(breaks))
	for _, b := range breaks {
		set[b] = true
	}

	var sb strings.Builder
	last := len(sentence) - 1
	for i, c := range sentence {
		sb.WriteString(c)
		if set[i] && i != last {
			sb.WriteString(sep)
		}
	}
	return sb.String()
}
