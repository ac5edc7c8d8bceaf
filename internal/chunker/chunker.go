// Package chunker cuts normalized text into overlapping word windows.
package chunker

import (
	"sort"
	"strings"
)

// minFallbackWords is the smallest document that still yields a chunk when no
// full window fits.
const minFallbackWords = 10

// Chunk is a window of words tagged with the document it came from.
type Chunk struct {
	Source string
	Text   string
}

// MinWords returns the shortest window that Split will emit for chunkWords.
func MinWords(chunkWords int) int {
	return max(minFallbackWords, chunkWords/3)
}

// Split slides a chunkWords window over the whitespace tokens of text,
// advancing strideWords words each step. It stops at the first window shorter
// than MinWords(chunkWords). A document that yields no window but has at least
// ten words is returned whole as a single chunk.
//
// text is expected to be normalized already; Split only tokenizes on
// whitespace. A stride below one is treated as one.
func Split(text string, chunkWords, strideWords int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if strideWords < 1 {
		strideWords = 1
	}
	minWords := MinWords(chunkWords)

	var chunks []string
	for start := 0; start < len(words); start += strideWords {
		end := start + max(chunkWords, 0)
		if end > len(words) {
			end = len(words)
		}
		if end-start < minWords {
			break
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	if len(chunks) == 0 && len(words) >= minFallbackWords {
		chunks = append(chunks, strings.Join(words, " "))
	}
	return chunks
}

// FromDocuments splits every document of docs and tags the chunks with the
// document name. Documents are visited in name order so the result is stable.
// normalize is applied to each text before splitting when non-nil.
func FromDocuments(docs map[string]string, chunkWords, strideWords int, normalize func(string) string) []Chunk {
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Chunk
	for _, name := range names {
		text := docs[name]
		if normalize != nil {
			text = normalize(text)
		}
		for _, c := range Split(text, chunkWords, strideWords) {
			out = append(out, Chunk{Source: name, Text: c})
		}
	}
	return out
}
