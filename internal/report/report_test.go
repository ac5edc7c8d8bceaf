package report_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/veritas/internal/matcher"
	"github.com/knowledge-engine/veritas/internal/report"
	"github.com/knowledge-engine/veritas/internal/websearch"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		level report.Level
	}{
		{0, report.LevelLow},
		{0.1499, report.LevelLow},
		{0.15, report.LevelModerate},
		{0.3999, report.LevelModerate},
		{0.40, report.LevelHigh},
		{1, report.LevelHigh},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.score), func(t *testing.T) {
			band := report.Classify(tt.score)
			assert.Equal(t, tt.level, band.Level)
			assert.NotEmpty(t, band.Label)
			assert.NotEmpty(t, band.Advice)
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "0.0%", report.Percent(0))
	assert.Equal(t, "42.5%", report.Percent(0.425))
	assert.Equal(t, "100.0%", report.Percent(1))
}

func TestWriteText(t *testing.T) {
	var matches []matcher.Match
	for i := 0; i < 20; i++ {
		matches = append(matches, matcher.Match{
			QueryChunk:  fmt.Sprintf("query passage %d", i),
			SourceDoc:   fmt.Sprintf("source-%02d.txt", i),
			SourceChunk: strings.Repeat("long source text ", 30),
			Score:       0.99 - float64(i)*0.01,
		})
	}

	var buf bytes.Buffer
	err := report.WriteText(&buf, report.Summary{
		Document:         "essay.docx",
		Profile:          "standard",
		Params:           matcher.Params{ChunkWords: 60, StrideWords: 25, TopKPerChunk: 1, Threshold: 0.75},
		GlobalSimilarity: 0.5,
		Matches:          matches,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "essay.docx")
	assert.Contains(t, out, "chunk 60 words, stride 25, top-k 1, threshold 0.75")
	assert.Contains(t, out, "50.0% - High similarity")
	assert.Contains(t, out, "Matches (15 of 20):")
	assert.Contains(t, out, "source-14.txt")
	assert.NotContains(t, out, "source-15.txt")
	assert.Contains(t, out, "…")
	assert.Contains(t, out, report.Disclaimer)
}

func TestWriteText_NoMatches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, report.Summary{Document: "a.txt", Profile: "strict", GlobalSimilarity: 0.05}))

	assert.Contains(t, buf.String(), "No passage reached the similarity threshold.")
	assert.Contains(t, buf.String(), "Low similarity")
}

func TestWriteWebText(t *testing.T) {
	var buf bytes.Buffer
	err := report.WriteWebText(&buf, report.WebSummary{
		Document:         "essay.txt",
		Profile:          "standard",
		Mode:             "quick",
		GlobalSimilarity: 0.3,
		Hits: []websearch.WebHit{
			{Title: "Copy", Link: "https://copy.example", Snippet: "a snippet", Score: 0.8, Chunk: "searched words"},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Mode:      quick")
	assert.Contains(t, out, "Pages (1):")
	assert.Contains(t, out, " 1. 80.0%  Copy")
	assert.Contains(t, out, "https://copy.example")
	assert.Contains(t, out, "searched words")

	buf.Reset()
	require.NoError(t, report.WriteWebText(&buf, report.WebSummary{Document: "x"}))
	assert.Contains(t, buf.String(), "No web page shared text with the document.")
}
