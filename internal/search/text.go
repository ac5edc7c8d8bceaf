package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// accentedLatin lists the accented letters that always survive normalization.
const accentedLatin = "áàâãéèêíïóôõöúçñ"

// isWordRune reports whether r counts as a word character: a letter, a digit or
// an underscore.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}

// Normalize lowercases text, replaces every character that is neither a word
// character, whitespace nor an accented Latin letter with a space, collapses
// whitespace runs and trims the ends.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case isWordRune(r), unicode.IsSpace(r), strings.ContainsRune(accentedLatin, r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits text into lowercase tokens of at least two word characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) < 2 {
			continue
		}
		tokens = append(tokens, strings.ToLower(field))
	}
	return tokens
}
