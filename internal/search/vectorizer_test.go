package search_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/veritas/internal/search"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty", "", ""},
		{"Only whitespace", " \t\n ", ""},
		{"Punctuation stripped", "Hello, World! This is a test.", "hello world this is a test"},
		{"Whitespace collapsed", "  many   spaces\n\nand\tlines  ", "many spaces and lines"},
		{"Accents kept", "Ação, Coração e Índio!", "ação coração e índio"},
		{"Underscore and digits kept", "snake_case 42 x-y", "snake_case 42 x y"},
		{"All symbols", "!!! ??? ---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, search.Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	once := search.Normalize("Análise de Similaridade; Integridade (Acadêmica)!")
	assert.Equal(t, once, search.Normalize(once))
}

func TestTokenize(t *testing.T) {
	text := "Hello, World! This is a test."
	tokens := search.Tokenize(text)

	assert.Equal(t, []string{"hello", "world", "this", "is", "test"}, tokens)
}

func TestTokenize_Unicode(t *testing.T) {
	assert.Equal(t, []string{"ação"}, search.Tokenize("Ação!"))
	// single-character words are dropped
	assert.Equal(t, []string{"não", "só"}, search.Tokenize("não é só"))
}

func TestTFIDFVectorizer(t *testing.T) {
	docs := []string{
		"apple banana",
		"apple orange",
	}

	vectorizer := search.NewTFIDFVectorizer(search.WithNGramRange(1, 1))
	vectorizer.Fit(docs)

	// apple, banana, orange
	require.Len(t, vectorizer.Vocabulary, 3)

	// idf(apple)  = ln(3/3) + 1 = 1
	// idf(banana) = ln(3/2) + 1
	assert.InDelta(t, 1.0, vectorizer.IDF[vectorizer.Vocabulary["apple"]], 1e-9)
	assert.InDelta(t, math.Log(1.5)+1, vectorizer.IDF[vectorizer.Vocabulary["banana"]], 1e-9)

	vec := vectorizer.Transform("apple banana")
	assert.Equal(t, 2, vec.Len())
	assert.InDelta(t, 1.0, vec.Norm(), 1e-9)
}

func TestTFIDFVectorizer_Bigrams(t *testing.T) {
	vectorizer := search.NewTFIDFVectorizer()
	vectorizer.Fit([]string{"quick brown fox"})

	for _, term := range []string{"quick", "brown", "fox", "quick brown", "brown fox"} {
		_, ok := vectorizer.Vocabulary[term]
		assert.True(t, ok, "missing term %q", term)
	}
	assert.Len(t, vectorizer.Vocabulary, 5)
}

func TestTFIDFVectorizer_MinDF(t *testing.T) {
	vectorizer := search.NewTFIDFVectorizer(search.WithNGramRange(1, 1), search.WithMinDF(2))
	vectorizer.Fit([]string{"apple banana", "apple orange"})

	assert.Len(t, vectorizer.Vocabulary, 1)
	assert.Contains(t, vectorizer.Vocabulary, "apple")
}

func TestTFIDFVectorizer_UnknownTerms(t *testing.T) {
	vectorizer := search.NewTFIDFVectorizer()
	vectorizer.Fit([]string{"apple banana"})

	vec := vectorizer.Transform("kiwi mango")
	assert.Equal(t, 0, vec.Len())
	assert.Zero(t, vec.Norm())
}

func TestTFIDFVectorizer_DeterministicIndices(t *testing.T) {
	docs := []string{"zeta alpha", "beta alpha gamma"}

	a := search.NewTFIDFVectorizer()
	a.Fit(docs)
	b := search.NewTFIDFVectorizer()
	b.Fit(docs)

	assert.Equal(t, a.Vocabulary, b.Vocabulary)
	assert.Equal(t, 0, a.Vocabulary["alpha"])
}
