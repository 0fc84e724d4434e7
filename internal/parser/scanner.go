package parser

import (
	"bufio"
	"io"
	"strings"
)

// blockHint is the scanner's guess at a block's kind. Validation happens
// later; the scanner only slices the file into raw spans.
type blockHint int

const (
	hintBasic blockHint = iota
	hintCloze
	hintInline
)

// rawBlock is an unvalidated card span: the marker line plus every body
// line up to the terminator, and the 1-based line the block starts on.
type rawBlock struct {
	hint blockHint
	text string
	line int
}

const (
	questionPrefix  = "Q:"
	clozePrefix     = "C:"
	answerPrefix    = "A:"
	inlineSeparator = "::"
	ruleMarker      = "---"
)

func flushLeft(line string) bool {
	return len(line) > 0 && line[0] != ' ' && line[0] != '\t'
}

// hasMarker reports whether line starts with the given tag, matched
// case-insensitively so "q:" edits do not orphan a card's history.
func hasMarker(line, tag string) bool {
	return len(line) >= len(tag) && strings.EqualFold(line[:len(tag)], tag)
}

// scan tokenizes a deck into raw blocks. A block opens at a flush-left
// "Q:", "C:" or "::" line and closes at the next flush-left marker, a
// flush-left "---" rule, or end of input. Indented markers are note
// prose: they neither open nor terminate a block.
func scan(r io.Reader) ([]rawBlock, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var blocks []rawBlock
	var current []string
	var currentHint blockHint
	currentLine := 0
	open := false

	finish := func() {
		if open {
			blocks = append(blocks, rawBlock{
				hint: currentHint,
				text: strings.Join(current, "\n"),
				line: currentLine,
			})
			current = nil
			open = false
		}
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if flushLeft(line) {
			switch {
			case strings.HasPrefix(line, ruleMarker):
				finish()
				continue
			case hasMarker(line, questionPrefix):
				finish()
				open = true
				currentHint = hintBasic
				currentLine = lineNo
				current = []string{line}
				continue
			case hasMarker(line, clozePrefix):
				finish()
				open = true
				currentHint = hintCloze
				currentLine = lineNo
				current = []string{line}
				continue
			case strings.Contains(line, inlineSeparator):
				finish()
				blocks = append(blocks, rawBlock{hint: hintInline, text: line, line: lineNo})
				continue
			}
		}

		if open {
			current = append(current, line)
		}
	}
	finish()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}
