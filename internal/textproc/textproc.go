// Package textproc holds the text normalization shared by every analysis stage.
package textproc

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// Normalize trims, collapses internal whitespace and applies NFC composition.
// The result is what the processed table shows as review text.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Clean lowercases s and strips everything except letters, digits, underscores
// and whitespace. Whitespace is collapsed afterwards.
func Clean(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens splits cleaned text on whitespace.
func Tokens(clean string) []string {
	return strings.Fields(clean)
}

// ContentTokens returns the tokens of clean text with stop words removed.
func ContentTokens(clean string) []string {
	fields := strings.Fields(clean)
	out := fields[:0:0]
	for _, tok := range fields {
		if IsStopword(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Lemmatize reduces clean text to stemmed content words used for topic modeling.
// Stop words, short tokens and tokens with non-letters are dropped.
func Lemmatize(clean string) string {
	var lemmas []string
	for _, tok := range strings.Fields(clean) {
		if len([]rune(tok)) < 2 || IsStopword(tok) || !alphabetic(tok) {
			continue
		}
		stem := english.Stem(tok, false)
		if stem == "" || IsStopword(stem) {
			continue
		}
		lemmas = append(lemmas, stem)
	}
	return strings.Join(lemmas, " ")
}

func alphabetic(tok string) bool {
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
