package matcher

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MarkOpen and MarkClose wrap every highlighted span.
	MarkOpen  = "⟦"
	MarkClose = "⟧"

	maxHighlightMatches = 20
	snippetWords        = 12
	minSnippetChars     = 20
)

// flexibleSpace matches any run of runes unicode.IsSpace accepts, so text
// split by strings.Fields can always be found again.
const flexibleSpace = `[\s\p{Z}\v\x{85}]+`

// SnippetStatus says what happened to one match during highlighting.
type SnippetStatus int

const (
	SnippetMarked SnippetStatus = iota
	SnippetNotFound
	SnippetTooShort
	SnippetMalformed
)

func (s SnippetStatus) String() string {
	switch s {
	case SnippetMarked:
		return "marked"
	case SnippetNotFound:
		return "not_found"
	case SnippetTooShort:
		return "too_short"
	case SnippetMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("SnippetStatus(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s SnippetStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name written by MarshalText.
func (s *SnippetStatus) UnmarshalText(b []byte) error {
	for _, st := range []SnippetStatus{SnippetMarked, SnippetNotFound, SnippetTooShort, SnippetMalformed} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("matcher: unknown snippet status %q", b)
}

// SnippetOutcome reports how the snippet of one match was handled.
type SnippetOutcome struct {
	Snippet     string        `json:"snippet"`
	Status      SnippetStatus `json:"status"`
	Occurrences int           `json:"occurrences"`
	Err         error         `json:"-"`
}

// Highlight marks the regions of text that the matches came from.
func Highlight(text string, matches []Match) string {
	out, _ := HighlightDetailed(text, matches)
	return out
}

// HighlightDetailed marks text like Highlight and also reports the outcome of
// every match it considered. For the first 20 matches it takes the leading 12
// words of the query chunk, skips snippets under 20 characters, and searches
// text case-insensitively with flexible whitespace. Every non-overlapping
// occurrence is wrapped in MarkOpen/MarkClose. Snippets that are missing or
// cannot be turned into a pattern are skipped without stopping the batch.
func HighlightDetailed(text string, matches []Match) (string, []SnippetOutcome) {
	if len(matches) > maxHighlightMatches {
		matches = matches[:maxHighlightMatches]
	}

	out := text
	outcomes := make([]SnippetOutcome, 0, len(matches))
	for _, m := range matches {
		words := strings.Fields(m.QueryChunk)
		snippet := strings.Join(words[:min(snippetWords, len(words))], " ")
		outcome := SnippetOutcome{Snippet: snippet}

		if utf8.RuneCountInString(snippet) < minSnippetChars {
			outcome.Status = SnippetTooShort
			outcomes = append(outcomes, outcome)
			continue
		}

		re, err := snippetPattern(words[:min(snippetWords, len(words))])
		if err != nil {
			outcome.Status = SnippetMalformed
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			continue
		}

		found := re.FindAllStringIndex(out, -1)
		if len(found) == 0 {
			outcome.Status = SnippetNotFound
			outcomes = append(outcomes, outcome)
			continue
		}

		out = re.ReplaceAllStringFunc(out, func(s string) string {
			return MarkOpen + s + MarkClose
		})
		outcome.Status = SnippetMarked
		outcome.Occurrences = len(found)
		outcomes = append(outcomes, outcome)
	}
	return out, outcomes
}

// snippetPattern builds a case-insensitive pattern matching the words in
// order, separated by any whitespace.
func snippetPattern(words []string) (*regexp.Regexp, error) {
	quoted := make([]string, len(words))
	for i, w := range words {
		if !utf8.ValidString(w) {
			return nil, fmt.Errorf("snippet word %q is not valid UTF-8", w)
		}
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.Compile(`(?i)` + strings.Join(quoted, flexibleSpace))
}
