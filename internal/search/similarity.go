package search

import (
	"errors"
)

var (
	// ErrEmptyInput is returned when either side of a comparison has no texts.
	ErrEmptyInput = errors.New("search: nothing to compare")
	// ErrEmptyVocabulary is returned when the texts produce no terms at all.
	ErrEmptyVocabulary = errors.New("search: empty vocabulary")
)

// Matrix is a dense row-major similarity matrix: one row per query text,
// one column per corpus text.
type Matrix struct {
	rows int
	cols int
	data []float64
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// At returns the score of query i against corpus j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// Set stores the score of query i against corpus j.
func (m *Matrix) Set(i, j int, score float64) {
	m.data[i*m.cols+j] = score
}

// Row returns the scores of query i. The slice aliases the matrix.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// RowMax returns the best score of query i, or 0 for an empty row.
func (m *Matrix) RowMax(i int) float64 {
	best := 0.0
	for j, s := range m.Row(i) {
		if j == 0 || s > best {
			best = s
		}
	}
	return best
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b SparseVector) float64 {
	normA, normB := a.Norm(), b.Norm()
	if normA == 0 || normB == 0 {
		return 0
	}
	score := a.Dot(b) / (normA * normB)
	// rounding can push identical vectors a hair past 1
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// Score fits one TF-IDF space over the union of query and corpus texts and
// returns their pairwise cosine similarities. Scores are only meaningful
// within the returned matrix; a different set of texts yields a different
// vocabulary.
func Score(query, corpus []string) (*Matrix, error) {
	if len(query) == 0 || len(corpus) == 0 {
		return nil, ErrEmptyInput
	}

	all := make([]string, 0, len(query)+len(corpus))
	all = append(all, query...)
	all = append(all, corpus...)

	vectorizer := NewTFIDFVectorizer(WithNGramRange(1, 2), WithMinDF(1))
	vectors := vectorizer.FitTransform(all)
	if len(vectorizer.Vocabulary) == 0 {
		return nil, ErrEmptyVocabulary
	}

	q, d := vectors[:len(query)], vectors[len(query):]
	m := NewMatrix(len(q), len(d))
	for i := range q {
		for j := range d {
			m.Set(i, j, CosineSimilarity(q[i], d[j]))
		}
	}
	return m, nil
}
