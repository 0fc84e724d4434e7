package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// hashLen is the number of hex characters kept from the digest. 128 bits
// is collision-free at any realistic deck size.
const hashLen = 32

// Canonicalize reduces s to the characters that carry meaning for card
// identity: ASCII letters (lowercased), ASCII digits, '+' and '-'.
// Whitespace, punctuation and case are discarded so formatting edits do
// not change a card's hash. '+' and '-' are kept because they change
// arithmetic meaning.
func Canonicalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// Hash returns the 32-hex-char identity of s, computed over its canonical
// form. It returns "" when nothing survives canonicalization; such content
// has no meaningful identity and callers must reject it.
func Hash(s string) string {
	canonical := Canonicalize(s)
	if canonical == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:hashLen]
}
