package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/veritas/internal/chunker"
	"github.com/knowledge-engine/veritas/internal/matcher"
	"github.com/knowledge-engine/veritas/internal/search"
)

func matrix(rows [][]float64) *search.Matrix {
	m := search.NewMatrix(len(rows), len(rows[0]))
	for i, row := range rows {
		for j, s := range row {
			m.Set(i, j, s)
		}
	}
	return m
}

var (
	queryChunks  = []string{"q0", "q1", "q2"}
	corpusChunks = []chunker.Chunk{
		{Source: "a", Text: "a0"},
		{Source: "a", Text: "a1"},
		{Source: "b", Text: "b0"},
	}
)

func TestSelect_TopKAndThreshold(t *testing.T) {
	m := matrix([][]float64{
		{0.90, 0.80, 0.10},
		{0.20, 0.30, 0.95},
		{0.50, 0.40, 0.30},
	})

	got := matcher.Select(m, queryChunks, corpusChunks, 1, 0.75)
	require.Len(t, got, 2)
	assert.Equal(t, matcher.Match{QueryChunk: "q1", SourceDoc: "b", SourceChunk: "b0", Score: 0.95}, got[0])
	assert.Equal(t, matcher.Match{QueryChunk: "q0", SourceDoc: "a", SourceChunk: "a0", Score: 0.90}, got[1])

	got = matcher.Select(m, queryChunks, corpusChunks, 2, 0.75)
	require.Len(t, got, 3)
	assert.Equal(t, "a1", got[2].SourceChunk)
}

func TestSelect_DeduplicatesKeepingBest(t *testing.T) {
	m := matrix([][]float64{
		{0.80, 0.10, 0.10},
		{0.95, 0.10, 0.10},
		{0.85, 0.10, 0.10},
	})

	got := matcher.Select(m, queryChunks, corpusChunks, 1, 0.5)
	require.Len(t, got, 1)
	assert.Equal(t, "q1", got[0].QueryChunk)
	assert.Equal(t, 0.95, got[0].Score)
}

func TestSelect_TiesKeepFirstSeen(t *testing.T) {
	m := matrix([][]float64{
		{0.80, 0.80, 0.10},
		{0.80, 0.10, 0.10},
		{0.10, 0.10, 0.10},
	})

	got := matcher.Select(m, queryChunks, corpusChunks, 1, 0.5)
	require.Len(t, got, 1)
	// column order breaks the tie in row 0, and q0 reached the span first
	assert.Equal(t, "a0", got[0].SourceChunk)
	assert.Equal(t, "q0", got[0].QueryChunk)
}

func TestSelect_MoreTopKNeverLoses(t *testing.T) {
	m := matrix([][]float64{
		{0.90, 0.85, 0.80},
		{0.90, 0.70, 0.88},
		{0.20, 0.30, 0.40},
	})

	prev := 0
	for k := 1; k <= 3; k++ {
		got := matcher.Select(m, queryChunks, corpusChunks, k, 0.5)
		assert.GreaterOrEqual(t, len(got), prev)
		prev = len(got)
	}
}

func TestSelect_NonPositiveTopK(t *testing.T) {
	m := matrix([][]float64{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}})
	assert.Empty(t, matcher.Select(m, queryChunks, corpusChunks, 0, 0))
	assert.Empty(t, matcher.Select(nil, queryChunks, corpusChunks, 1, 0))
}

func TestAggregate(t *testing.T) {
	m := matrix([][]float64{
		{0.90, 0.80, 0.10},
		{0.20, 0.30, 0.60},
		{0.00, 0.00, 0.00},
	})
	assert.InDelta(t, 0.5, matcher.Aggregate(m), 1e-12)
	assert.Zero(t, matcher.Aggregate(nil))
	assert.Zero(t, matcher.Aggregate(search.NewMatrix(0, 3)))
}

func TestAggregate_PositiveWithoutMatches(t *testing.T) {
	m := matrix([][]float64{
		{0.40, 0.30, 0.10},
		{0.20, 0.30, 0.50},
		{0.45, 0.00, 0.00},
	})
	assert.Empty(t, matcher.Select(m, queryChunks, corpusChunks, 1, 0.75))
	assert.InDelta(t, 0.45, matcher.Aggregate(m), 1e-12)
}
