package chat

import (
	"strings"
	"unicode"

	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
)

// DefaultBannedWords are always filtered.
var DefaultBannedWords = []string{"badword", "kufur"}

const maskRune = '*'

// ProfanityFilter matches banned words case-insensitively. It is immutable
// after construction and safe for concurrent use.
type ProfanityFilter struct {
	words [][]rune
}

// NewProfanityFilter builds a filter over DefaultBannedWords plus extra.
// Blank and duplicate words are ignored.
func NewProfanityFilter(extra ...string) *ProfanityFilter {
	seen := make(map[string]bool)
	f := &ProfanityFilter{}

	for _, word := range append(append([]string{}, DefaultBannedWords...), extra...) {
		folded := foldRunes(strings.TrimSpace(word))
		key := string(folded)
		if len(folded) == 0 || seen[key] {
			continue
		}
		seen[key] = true
		f.words = append(f.words, folded)
	}
	return f
}

// Redact replaces every rune that is part of a banned word with '*'. The
// result always has the same number of runes as text. Overlapping matches
// are all masked.
func (f *ProfanityFilter) Redact(text string) string {
	runes := []rune(text)
	mask := f.matches(runes)
	if mask == nil {
		return text
	}

	for i := range runes {
		if mask[i] {
			runes[i] = maskRune
		}
	}
	return string(runes)
}

// IsClean reports whether text contains no banned word.
func (f *ProfanityFilter) IsClean(text string) bool {
	return f.matches([]rune(text)) == nil
}

// EnforceClean rejects text that contains a banned word.
func (f *ProfanityFilter) EnforceClean(text string) error {
	if !f.IsClean(text) {
		return apperrors.ErrContentRejected
	}
	return nil
}

// matches returns a per-rune mask of banned positions, or nil when nothing
// matched.
func (f *ProfanityFilter) matches(runes []rune) []bool {
	folded := make([]rune, len(runes))
	for i, r := range runes {
		folded[i] = unicode.ToLower(r)
	}

	var mask []bool
	for _, word := range f.words {
		for start := 0; start+len(word) <= len(folded); start++ {
			if !hasPrefixAt(folded, word, start) {
				continue
			}
			if mask == nil {
				mask = make([]bool, len(runes))
			}
			for i := start; i < start+len(word); i++ {
				mask[i] = true
			}
		}
	}
	return mask
}

func hasPrefixAt(text, word []rune, start int) bool {
	for i, r := range word {
		if text[start+i] != r {
			return false
		}
	}
	return true
}

func foldRunes(s string) []rune {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}
