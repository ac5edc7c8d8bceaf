// Package matcher is the chunk-based similarity engine: it compares the
// chunks of a query text against the chunks of a corpus, selects and ranks
// the matching spans and reduces the scores to one global similarity index.
//
// Everything here is a pure function of its inputs. Scores come from a
// TF-IDF space fitted over a single run, so they are never cached or compared
// across runs.
package matcher

import (
	"errors"
	"fmt"

	"github.com/knowledge-engine/veritas/internal/chunker"
	"github.com/knowledge-engine/veritas/internal/search"
)

// Match links a query chunk to a corpus chunk whose score cleared the threshold.
type Match struct {
	QueryChunk  string  `json:"query_chunk"`
	SourceDoc   string  `json:"source_doc"`
	SourceChunk string  `json:"source_chunk"`
	Score       float64 `json:"score"`
}

// Params are the tuning knobs of a run.
type Params struct {
	ChunkWords   int     `json:"chunk_words" toml:"chunk_words"`
	StrideWords  int     `json:"stride_words" toml:"stride_words"`
	TopKPerChunk int     `json:"top_k_per_chunk" toml:"top_k_per_chunk"`
	Threshold    float64 `json:"threshold" toml:"threshold"`
}

// ErrInvalidParams reports tuning knobs outside their meaningful range.
var ErrInvalidParams = errors.New("matcher: invalid parameters")

// Validate checks the knobs for values the engine cannot use sensibly. The
// engine itself never calls it; outer layers do before accepting user input.
func (p Params) Validate() error {
	switch {
	case p.ChunkWords < 1:
		return fmt.Errorf("%w: chunk_words must be positive, got %d", ErrInvalidParams, p.ChunkWords)
	case p.StrideWords < 1:
		return fmt.Errorf("%w: stride_words must be positive, got %d", ErrInvalidParams, p.StrideWords)
	case p.TopKPerChunk < 1:
		return fmt.Errorf("%w: top_k_per_chunk must be positive, got %d", ErrInvalidParams, p.TopKPerChunk)
	case p.Threshold < 0 || p.Threshold > 1:
		return fmt.Errorf("%w: threshold must be within [0,1], got %g", ErrInvalidParams, p.Threshold)
	}
	return nil
}

// Result is the outcome of a run.
type Result struct {
	GlobalSimilarity float64 `json:"global_similarity"`
	Matches          []Match `json:"matches"`
}

// Run holds the chunks and the similarity matrix of one scoring pass.
type Run struct {
	Query  []string
	Corpus []chunker.Chunk
	Scores *search.Matrix
}

// NewRun scores query chunks against corpus chunks in one shared vector
// space. It fails with search.ErrEmptyInput or search.ErrEmptyVocabulary when
// there is nothing to compare.
func NewRun(query []string, corpus []chunker.Chunk) (*Run, error) {
	texts := make([]string, len(corpus))
	for i, c := range corpus {
		texts[i] = c.Text
	}
	scores, err := search.Score(query, texts)
	if err != nil {
		return nil, err
	}
	return &Run{Query: query, Corpus: corpus, Scores: scores}, nil
}

// Result selects matches with p and computes the global similarity.
func (r *Run) Result(p Params) Result {
	return Result{
		GlobalSimilarity: Aggregate(r.Scores),
		Matches:          Select(r.Scores, r.Query, r.Corpus, p.TopKPerChunk, p.Threshold),
	}
}

// BestBySource returns, for every corpus document, the best score any query
// chunk reached against any of its chunks.
func (r *Run) BestBySource() map[string]float64 {
	best := make(map[string]float64)
	for j, c := range r.Corpus {
		for i := 0; i < r.Scores.Rows(); i++ {
			if s := r.Scores.At(i, j); s > best[c.Source] {
				best[c.Source] = s
			}
		}
		if _, ok := best[c.Source]; !ok {
			best[c.Source] = 0
		}
	}
	return best
}

// MatchChunks compares already chunked texts. Empty inputs and texts without
// any usable term give the zero Result.
func MatchChunks(query []string, corpus []chunker.Chunk, p Params) Result {
	run, err := NewRun(query, corpus)
	if err != nil {
		return Result{}
	}
	return run.Result(p)
}

// ComputeMatches normalizes and chunks queryText and every corpus document,
// then scores, selects and aggregates in one run.
func ComputeMatches(queryText string, corpus map[string]string, p Params) Result {
	query := chunker.Split(search.Normalize(queryText), p.ChunkWords, p.StrideWords)
	if len(query) == 0 {
		return Result{}
	}
	chunks := chunker.FromDocuments(corpus, p.ChunkWords, p.StrideWords, search.Normalize)
	return MatchChunks(query, chunks, p)
}
