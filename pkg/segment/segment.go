// Package segment scores learner segmentation (断句) of classical Chinese
// sentences against a canonical reference answer.
package segment

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

const (
	// SlashSeparator delimits segments in slash-encoded answers.
	SlashSeparator = "/"

	// DefaultMarker is the glyph inserted at user breaks when a sentence is
	// rebuilt as text.
	DefaultMarker = "，"
)

var marks = map[string]bool{
	"，": true, "。": true, "？": true, "！": true, "；": true, "：": true,
	"、": true, "「": true, "」": true, "『": true, "』": true, "（": true,
	"）": true, "【": true, "】": true, "—": true, "…": true,
}

// IsMark reports whether g is one of the inline punctuation glyphs that
// denote a break in punctuated answers.
func IsMark(g string) bool {
	return marks[g]
}

// Chars splits text into user-perceived characters. Whitespace is dropped so
// that gap indices stay aligned between the sentence and its answer.
func Chars(text string) []string {
	list := make([]string, 0, len(text)/3)
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		g := gr.Str()
		if isSpace(g) {
			continue
		}
		list = append(list, g)
	}
	return list
}

func isSpace(g string) bool {
	for _, r := range g {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
