package parser

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/conorfennell/repeater/internal/domain"
)

func parseString(t *testing.T, input string) ([]domain.Card, []ParseError) {
	t.Helper()
	cards, parseErrs, err := Parse(strings.NewReader(input), "test.md")
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	return cards, parseErrs
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedKind  domain.CardKind
		expectedQ     string
		expectedA     string
	}{
		{
			name:          "simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expectedKind:  domain.Basic,
			expectedQ:     "What is the capital of France?",
			expectedA:     "Paris",
		},
		{
			name: "multiline answer",
			input: `Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedKind:  domain.Basic,
			expectedQ:     "What are the primary colors?",
			expectedA:     "Red\nBlue\nYellow",
		},
		{
			name:          "prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedKind:  domain.Basic,
			expectedQ:     "Question",
			expectedA:     "Answer",
		},
		{
			name:          "single-line card",
			input:         "what is this :: remnote style",
			expectedCards: 1,
			expectedKind:  domain.Basic,
			expectedQ:     "what is this",
			expectedA:     "remnote style",
		},
		{
			name:          "cloze card",
			input:         "C: ping? [pong]",
			expectedCards: 1,
			expectedKind:  domain.Cloze,
			expectedQ:     "ping? [____]",
			expectedA:     "ping? pong",
		},
		{
			name: "two cards separated by rule",
			input: `Q: First question
A: First answer
---
Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "prose before a card is ignored, prose after it joins the answer",
			input: `Some prose that is not a card.

Q: real?
A: yes

More prose with no terminator before end of file.
`,
			expectedCards: 1,
			expectedKind:  domain.Basic,
			expectedQ:     "real?",
			expectedA:     "yes\n\nMore prose with no terminator before end of file.",
		},
		{
			name:          "no cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, parseErrs := parseString(t, tc.input)
			if len(parseErrs) != 0 {
				t.Fatalf("expected no parse errors, got %v", parseErrs)
			}
			if len(cards) != tc.expectedCards {
				t.Fatalf("expected %d cards, got %d", tc.expectedCards, len(cards))
			}
			if tc.expectedCards == 1 {
				card := cards[0]
				if card.Kind != tc.expectedKind {
					t.Errorf("expected kind %v, got %v", tc.expectedKind, card.Kind)
				}
				if card.Question != tc.expectedQ {
					t.Errorf("expected question %q, got %q", tc.expectedQ, card.Question)
				}
				if card.Answer != tc.expectedA {
					t.Errorf("expected answer %q, got %q", tc.expectedA, card.Answer)
				}
				if card.Hash == "" {
					t.Error("expected a non-empty hash")
				}
			}
		})
	}
}

func TestIndentedMarkersAreProse(t *testing.T) {
	input := "Q: outer question\n  Q: this is prose, not a new card\n  A: still prose\nA: the answer\n"
	cards, parseErrs := parseString(t, input)
	if len(parseErrs) != 0 {
		t.Fatalf("expected no parse errors, got %v", parseErrs)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if !strings.Contains(cards[0].Question, "this is prose") {
		t.Errorf("indented markers should stay in the question body, got %q", cards[0].Question)
	}
	if cards[0].Answer != "the answer" {
		t.Errorf("expected answer from flush-left A: line, got %q", cards[0].Answer)
	}
}

func TestInlineMarkerTerminatesBlock(t *testing.T) {
	input := "Q: dangling question\nleft :: right\n"
	cards, parseErrs := parseString(t, input)
	// The Q: block is cut off by the :: marker and fails validation; the
	// inline card itself parses.
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].Question != "left" || cards[0].Answer != "right" {
		t.Errorf("unexpected inline card %q / %q", cards[0].Question, cards[0].Answer)
	}
	if len(parseErrs) != 1 {
		t.Fatalf("expected 1 parse error for the dangling Q: block, got %d", len(parseErrs))
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"question without answer", "Q: What is this?\n", "missing a flush-left 'A:'"},
		{"empty answer", "Q: what?\nA: \n", "empty answer"},
		{"empty question", "Q:\nA: yes\n", "empty question"},
		{"empty single-line side", "what is this::\n", "both sides"},
		{"cloze without span", "C: this has no cloze markers", "at least one"},
		{"cloze empty span", "C: bad []", "empty []"},
		{"cloze unbalanced open", "C: this is invalid [cloze", "unbalanced '['"},
		{"cloze unbalanced close", "C: this is invalid cloze]", "unbalanced ']'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, parseErrs := parseString(t, tc.input)
			if len(cards) != 0 {
				t.Fatalf("expected no cards, got %d", len(cards))
			}
			if len(parseErrs) != 1 {
				t.Fatalf("expected 1 parse error, got %d", len(parseErrs))
			}
			if !strings.Contains(parseErrs[0].Msg, tc.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tc.wantMsg, parseErrs[0].Msg)
			}
			if parseErrs[0].Path != "test.md" || parseErrs[0].Line == 0 {
				t.Errorf("expected error to carry file and line, got %+v", parseErrs[0])
			}
		})
	}
}

func TestParseErrorDoesNotHaltFile(t *testing.T) {
	input := "C: bad []\n---\nQ: still fine?\nA: yes\n"
	cards, parseErrs := parseString(t, input)
	if len(parseErrs) != 1 {
		t.Fatalf("expected 1 parse error, got %d", len(parseErrs))
	}
	if len(cards) != 1 {
		t.Fatalf("expected the valid card to survive, got %d cards", len(cards))
	}
	if cards[0].Question != "still fine?" {
		t.Errorf("unexpected surviving card %q", cards[0].Question)
	}
}

func TestParseErrorLineNumbers(t *testing.T) {
	input := "first line of prose\n\nQ: ok?\nA: ok\n---\nC: broken [\n"
	_, parseErrs := parseString(t, input)
	if len(parseErrs) != 1 {
		t.Fatalf("expected 1 parse error, got %d", len(parseErrs))
	}
	if parseErrs[0].Line != 6 {
		t.Errorf("expected error on line 6, got %d", parseErrs[0].Line)
	}
}

func TestClozeMasking(t *testing.T) {
	cards, parseErrs := parseString(t, "C: Region: [us-east-2]\n\nLocation: [Ohio]\n")
	if len(parseErrs) != 0 {
		t.Fatalf("expected no parse errors, got %v", parseErrs)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}

	card := cards[0]
	if card.Question != "Region: [____]\n\nLocation: [____]" {
		t.Errorf("unexpected masked question %q", card.Question)
	}
	if card.Answer != "Region: us-east-2\n\nLocation: Ohio" {
		t.Errorf("unexpected revealed answer %q", card.Answer)
	}
}

func TestClozeMaskWidthIsFixed(t *testing.T) {
	short, _ := parseString(t, "C: capital [x]")
	long, _ := parseString(t, "C: capital [a much longer hidden answer]")
	if len(short) != 1 || len(long) != 1 {
		t.Fatal("expected both cards to parse")
	}
	if len(short[0].Question) != len(long[0].Question) {
		t.Errorf("mask width must not depend on the hidden span: %q vs %q",
			short[0].Question, long[0].Question)
	}
}

func TestHashStableAcrossFormattingEdits(t *testing.T) {
	before, _ := parseString(t, "Q: What is ATP?\nA: Adenosine triphosphate.")
	after, _ := parseString(t, "q:  what is atp ?\na: Adenosine, triphosphate!")
	if len(before) != 1 || len(after) != 1 {
		t.Fatalf("expected both variants to parse, got %d and %d cards", len(before), len(after))
	}
	if before[0].Hash != after[0].Hash {
		t.Errorf("formatting edits must not change the hash: %s vs %s", before[0].Hash, after[0].Hash)
	}

	inline, _ := parseString(t, "what is atp ? :: Adenosine, triphosphate!")
	if len(inline) != 1 {
		t.Fatal("expected the inline form to parse")
	}
	if inline[0].Hash != before[0].Hash {
		t.Errorf("marker style must not change the hash: %s vs %s", inline[0].Hash, before[0].Hash)
	}
}

func TestExtractMedia(t *testing.T) {
	body := `# Sample Card

What animal is this?

![dog](media/dog.jpg)

Listen: [audio](media/dog.mp3)
Watch: [video](media/dog.mp4)

This is a normal link and should be ignored: [example](https://example.com)`

	refs := ExtractMedia(body, "notes")
	expected := []string{
		filepath.Join("notes", "media/dog.jpg"),
		filepath.Join("notes", "media/dog.mp3"),
		filepath.Join("notes", "media/dog.mp4"),
	}
	if len(refs) != len(expected) {
		t.Fatalf("expected %d media refs, got %d: %v", len(expected), len(refs), refs)
	}
	for i := range expected {
		if refs[i] != expected[i] {
			t.Errorf("ref %d: expected %q, got %q", i, expected[i], refs[i])
		}
	}
}

func TestExtractMediaCaseInsensitiveExtensions(t *testing.T) {
	refs := ExtractMedia("![x](photo.PNG) [clip](CLIP.Mp4)", "")
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d: %v", len(refs), refs)
	}
}

func TestCardsCarryMediaRefs(t *testing.T) {
	cards, parseErrs := parseString(t, "Q: what sound?\nA: ![dog](media/dog.jpg) a bark\n")
	if len(parseErrs) != 0 {
		t.Fatalf("expected no parse errors, got %v", parseErrs)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	want := filepath.Join(".", "media/dog.jpg")
	if len(cards[0].MediaRefs) != 1 || cards[0].MediaRefs[0] != want {
		t.Errorf("expected media refs [%q], got %v", want, cards[0].MediaRefs)
	}
}
