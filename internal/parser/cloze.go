package parser

import (
	"errors"
	"strings"
)

// clozeMask replaces every hidden span in a prompt. The width is fixed so
// the prompt does not leak the length of the answer.
const clozeMask = "[____]"

var (
	errUnbalancedOpen  = errors.New("unbalanced '[' in cloze text")
	errUnbalancedClose = errors.New("unbalanced ']' in cloze text")
	errEmptySpan       = errors.New("empty [] span in cloze text")
)

// clozeSpans returns the [start, end) byte ranges of every bracketed span
// in text, brackets included. Unbalanced brackets and empty spans are
// errors.
func clozeSpans(text string) ([][2]int, error) {
	var spans [][2]int
	start := -1
	for i, r := range text {
		switch r {
		case '[':
			if start >= 0 {
				return nil, errUnbalancedOpen
			}
			start = i
		case ']':
			if start < 0 {
				return nil, errUnbalancedClose
			}
			if strings.TrimSpace(text[start+1:i]) == "" {
				return nil, errEmptySpan
			}
			spans = append(spans, [2]int{start, i + 1})
			start = -1
		}
	}
	if start >= 0 {
		return nil, errUnbalancedOpen
	}
	return spans, nil
}

// maskCloze renders the prompt side of a cloze card: every bracketed span
// is replaced with the fixed-width mask.
func maskCloze(text string, spans [][2]int) string {
	var b strings.Builder
	prev := 0
	for _, span := range spans {
		b.WriteString(text[prev:span[0]])
		b.WriteString(clozeMask)
		prev = span[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

// revealCloze renders the answer side: the original text with the span
// brackets stripped.
func revealCloze(text string, spans [][2]int) string {
	var b strings.Builder
	prev := 0
	for _, span := range spans {
		b.WriteString(text[prev:span[0]])
		b.WriteString(text[span[0]+1 : span[1]-1])
		prev = span[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}
