// Package report classifies similarity scores and renders results as plain
// text for terminals and logs.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/knowledge-engine/veritas/internal/matcher"
	"github.com/knowledge-engine/veritas/internal/websearch"
)

// Level is the coarse severity of a global similarity score.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

const (
	maxTextMatches = 15
	excerptRunes   = 200
)

// Disclaimer accompanies every rendered report.
const Disclaimer = "Similarity scores are estimates. A high score points at passages worth " +
	"reviewing, not at misconduct; quotations and common phrasing also match."

// Band is the verdict shown next to a score.
type Band struct {
	Level  Level  `json:"level"`
	Label  string `json:"label"`
	Advice string `json:"advice"`
}

// Classify maps a global similarity in [0,1] to its band.
func Classify(score float64) Band {
	switch {
	case score < 0.15:
		return Band{Level: LevelLow, Label: "Low similarity", Advice: "Good sign of originality."}
	case score < 0.40:
		return Band{Level: LevelModerate, Label: "Moderate similarity", Advice: "Check the shared passages."}
	default:
		return Band{Level: LevelHigh, Label: "High similarity", Advice: "Review required."}
	}
}

// Summary is what WriteText renders for a library comparison.
type Summary struct {
	Document         string
	Profile          string
	Params           matcher.Params
	GlobalSimilarity float64
	Matches          []matcher.Match
}

// WebSummary is what WriteWebText renders for a web scan.
type WebSummary struct {
	Document         string
	Profile          string
	Mode             string
	GlobalSimilarity float64
	Hits             []websearch.WebHit
}

// Percent formats a score in [0,1] as a percentage with one decimal.
func Percent(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

// WriteText renders a library comparison, listing the best matches first.
func WriteText(w io.Writer, s Summary) error {
	band := Classify(s.GlobalSimilarity)
	var b strings.Builder

	b.WriteString("Similarity report\n")
	fmt.Fprintf(&b, "Document:          %s\n", s.Document)
	fmt.Fprintf(&b, "Profile:           %s (chunk %d words, stride %d, top-k %d, threshold %.2f)\n",
		s.Profile, s.Params.ChunkWords, s.Params.StrideWords, s.Params.TopKPerChunk, s.Params.Threshold)
	fmt.Fprintf(&b, "Global similarity: %s - %s\n", Percent(s.GlobalSimilarity), band.Label)
	fmt.Fprintf(&b, "                   %s\n\n", band.Advice)

	if len(s.Matches) == 0 {
		b.WriteString("No passage reached the similarity threshold.\n")
	} else {
		shown := min(len(s.Matches), maxTextMatches)
		fmt.Fprintf(&b, "Matches (%d of %d):\n", shown, len(s.Matches))
		for i, m := range s.Matches[:shown] {
			fmt.Fprintf(&b, "%2d. %s  %s\n", i+1, Percent(m.Score), m.SourceDoc)
			fmt.Fprintf(&b, "    analysed: %s\n", excerpt(m.QueryChunk))
			fmt.Fprintf(&b, "    source:   %s\n", excerpt(m.SourceChunk))
		}
	}

	fmt.Fprintf(&b, "\n%s\n", Disclaimer)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteWebText renders a web scan, listing the best hits first.
func WriteWebText(w io.Writer, s WebSummary) error {
	var b strings.Builder

	b.WriteString("Web similarity report\n")
	fmt.Fprintf(&b, "Document:  %s\n", s.Document)
	fmt.Fprintf(&b, "Profile:   %s\n", s.Profile)
	fmt.Fprintf(&b, "Mode:      %s\n", s.Mode)
	fmt.Fprintf(&b, "Web index: %s\n\n", Percent(s.GlobalSimilarity))

	if len(s.Hits) == 0 {
		b.WriteString("No web page shared text with the document.\n")
	} else {
		// the scanner already caps and ranks the hits
		fmt.Fprintf(&b, "Pages (%d):\n", len(s.Hits))
		for i, h := range s.Hits {
			fmt.Fprintf(&b, "%2d. %s  %s\n", i+1, Percent(h.Score), h.Title)
			fmt.Fprintf(&b, "    link:    %s\n", h.Link)
			if h.Snippet != "" {
				fmt.Fprintf(&b, "    snippet: %s\n", excerpt(h.Snippet))
			}
			if h.Chunk != "" {
				fmt.Fprintf(&b, "    query:   %s\n", excerpt(h.Chunk))
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n", Disclaimer)
	_, err := io.WriteString(w, b.String())
	return err
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= excerptRunes {
		return s
	}
	return string(r[:excerptRunes]) + "…"
}
