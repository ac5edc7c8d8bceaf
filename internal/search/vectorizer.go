package search

import (
	"math"
	"sort"
	"strings"
)

// Vectorizer turns text into a vector
type Vectorizer interface {
	Fit(docs []string)
	Transform(text string) SparseVector
}

// SparseVector holds the non-zero entries of a term vector, ordered by index.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero entries.
func (v SparseVector) Len() int {
	return len(v.Indices)
}

// Dot computes the inner product of two sparse vectors.
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm returns the Euclidean length of the vector.
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Option configures a TFIDFVectorizer.
type Option func(*TFIDFVectorizer)

// WithNGramRange sets the inclusive range of word n-gram sizes.
func WithNGramRange(lo, hi int) Option {
	return func(v *TFIDFVectorizer) {
		if lo >= 1 && hi >= lo {
			v.nGramMin = lo
			v.nGramMax = hi
		}
	}
}

// WithMinDF drops terms that occur in fewer than n documents.
func WithMinDF(n int) Option {
	return func(v *TFIDFVectorizer) {
		if n >= 1 {
			v.minDF = n
		}
	}
}

// TFIDFVectorizer implements Term Frequency - Inverse Document Frequency
// over word n-grams with smoothed idf and L2 normalized rows.
type TFIDFVectorizer struct {
	Vocabulary map[string]int
	IDF        []float64

	nGramMin int
	nGramMax int
	minDF    int
}

// NewTFIDFVectorizer builds a vectorizer over unigrams and bigrams with a
// minimum document frequency of 1 unless options say otherwise.
func NewTFIDFVectorizer(opts ...Option) *TFIDFVectorizer {
	v := &TFIDFVectorizer{
		Vocabulary: make(map[string]int),
		nGramMin:   1,
		nGramMax:   2,
		minDF:      1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// terms expands text into its word n-grams.
func (v *TFIDFVectorizer) terms(text string) []string {
	tokens := Tokenize(text)
	var out []string
	for n := v.nGramMin; n <= v.nGramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				out = append(out, tokens[i])
				continue
			}
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// Fit analyzes the corpus to build vocabulary and IDF stats. Term indices
// follow lexical order so repeated fits over the same corpus agree.
func (v *TFIDFVectorizer) Fit(docs []string) {
	docCount := float64(len(docs))
	termDocCounts := make(map[string]int)

	for _, doc := range docs {
		seenInDoc := make(map[string]bool)
		for _, term := range v.terms(doc) {
			if !seenInDoc[term] {
				termDocCounts[term]++
				seenInDoc[term] = true
			}
		}
	}

	kept := make([]string, 0, len(termDocCounts))
	for term, count := range termDocCounts {
		if count >= v.minDF {
			kept = append(kept, term)
		}
	}
	sort.Strings(kept)

	v.Vocabulary = make(map[string]int, len(kept))
	v.IDF = make([]float64, len(kept))
	for idx, term := range kept {
		v.Vocabulary[term] = idx
		// idf = ln((1 + N) / (1 + df)) + 1
		v.IDF[idx] = math.Log((1+docCount)/(1+float64(termDocCounts[term]))) + 1
	}
}

// Transform converts text to an L2 normalized vector based on the learned
// vocabulary. Terms outside the vocabulary are ignored.
func (v *TFIDFVectorizer) Transform(text string) SparseVector {
	counts := make(map[int]float64)
	for _, term := range v.terms(text) {
		if idx, exists := v.Vocabulary[term]; exists {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	var sumSquares float64
	for i, idx := range indices {
		w := counts[idx] * v.IDF[idx]
		values[i] = w
		sumSquares += w * w
	}
	if norm := math.Sqrt(sumSquares); norm > 0 {
		for i := range values {
			values[i] /= norm
		}
	}

	return SparseVector{Indices: indices, Values: values}
}

// FitTransform fits the vocabulary on docs and returns their vectors.
func (v *TFIDFVectorizer) FitTransform(docs []string) []SparseVector {
	v.Fit(docs)
	out := make([]SparseVector, len(docs))
	for i, doc := range docs {
		out[i] = v.Transform(doc)
	}
	return out
}
