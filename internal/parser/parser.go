package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/repeater/internal/domain"
	"github.com/conorfennell/repeater/internal/knol"
)

// ParseError is a malformed card block, reported with enough context to
// find it in the deck file. The block is skipped; the rest of the file
// still parses.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// ParseFile reads a deck file and extracts all cards. The returned error
// is for file IO only; malformed blocks come back as ParseErrors.
func ParseFile(path string) ([]domain.Card, []ParseError, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return Parse(file, path)
}

// Parse extracts all cards from r. path is used for error reporting and
// for resolving relative media references.
func Parse(r io.Reader, path string) ([]domain.Card, []ParseError, error) {
	blocks, err := scan(r)
	if err != nil {
		return nil, nil, err
	}

	var cards []domain.Card
	var parseErrs []ParseError
	for _, block := range blocks {
		card, perr := parseBlock(block, path)
		if perr != nil {
			parseErrs = append(parseErrs, *perr)
			continue
		}
		cards = append(cards, card)
	}
	return cards, parseErrs, nil
}

func parseBlock(block rawBlock, path string) (domain.Card, *ParseError) {
	fail := func(msg string) (domain.Card, *ParseError) {
		return domain.Card{}, &ParseError{Path: path, Line: block.line, Msg: msg}
	}

	switch block.hint {
	case hintInline:
		left, right, _ := strings.Cut(block.text, inlineSeparator)
		question := strings.TrimSpace(left)
		answer := strings.TrimSpace(right)
		if question == "" || answer == "" {
			return fail("single-line card needs text on both sides of '::'")
		}
		return basicCard(question, answer, path, block.line)

	case hintBasic:
		question, answer, ok := splitBasic(block.text)
		if !ok {
			return fail("basic card is missing a flush-left 'A:' line")
		}
		if question == "" {
			return fail("basic card has an empty question")
		}
		if answer == "" {
			return fail("basic card has an empty answer")
		}
		return basicCard(question, answer, path, block.line)

	case hintCloze:
		body := strings.TrimSpace(block.text[len(clozePrefix):])
		if body == "" {
			return fail("cloze card has an empty body")
		}
		spans, err := clozeSpans(body)
		if err != nil {
			return fail(err.Error())
		}
		if len(spans) == 0 {
			return fail("cloze card needs at least one [hidden] span")
		}
		hash := knol.Hash(body)
		if hash == "" {
			return fail("card has no hashable content")
		}
		return domain.Card{
			Hash:       hash,
			Kind:       domain.Cloze,
			Question:   maskCloze(body, spans),
			Answer:     revealCloze(body, spans),
			SourcePath: path,
			Line:       block.line,
			MediaRefs:  ExtractMedia(body, filepath.Dir(path)),
		}, nil
	}

	return fail("unrecognized block")
}

func basicCard(question, answer, path string, line int) (domain.Card, *ParseError) {
	hash := knol.Hash(question + "\n" + answer)
	if hash == "" {
		return domain.Card{}, &ParseError{Path: path, Line: line, Msg: "card has no hashable content"}
	}
	return domain.Card{
		Hash:       hash,
		Kind:       domain.Basic,
		Question:   question,
		Answer:     answer,
		SourcePath: path,
		Line:       line,
		MediaRefs:  ExtractMedia(question+"\n"+answer, filepath.Dir(path)),
	}, nil
}

// splitBasic separates a Q/A block into its question and answer bodies.
// The block starts with the "Q:" line; the answer begins at the first
// flush-left "A:" line.
func splitBasic(text string) (question, answer string, ok bool) {
	lines := strings.Split(text, "\n")
	answerAt := -1
	for i := 1; i < len(lines); i++ {
		if flushLeft(lines[i]) && hasMarker(lines[i], answerPrefix) {
			answerAt = i
			break
		}
	}
	if answerAt < 0 {
		return "", "", false
	}

	qLines := append([]string{lines[0][len(questionPrefix):]}, lines[1:answerAt]...)
	aLines := append([]string{lines[answerAt][len(answerPrefix):]}, lines[answerAt+1:]...)
	return strings.TrimSpace(strings.Join(qLines, "\n")), strings.TrimSpace(strings.Join(aLines, "\n")), true
}
