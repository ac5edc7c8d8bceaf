// Package websearch runs the web scan: it searches the web for passages of a
// text and scores the pages found with the same matcher used for the library.
package websearch

import (
	"regexp"
	"strings"
)

// minSearchWords is the floor on words in a search chunk.
const minSearchWords = 12

var searchWordRe = regexp.MustCompile(`[A-Za-zÀ-ÿ0-9]+`)

func searchWords(text string) []string {
	return searchWordRe.FindAllString(strings.ToLower(text), -1)
}

// BuildSearchChunks cuts text into the phrases submitted to the search
// provider. Windows of chunkWords words start every strideWords words; a
// window is kept when it has at least max(12, chunkWords/2) words, at most
// maxChunks windows are taken, and repeated phrases are dropped keeping the
// first.
func BuildSearchChunks(text string, chunkWords, strideWords, maxChunks int) []string {
	words := searchWords(text)
	if len(words) == 0 || maxChunks <= 0 {
		return nil
	}
	if strideWords < 1 {
		strideWords = 1
	}
	minWords := max(minSearchWords, chunkWords/2)

	var chunks []string
	for i := 0; i < len(words) && len(chunks) < maxChunks; i += strideWords {
		end := min(i+chunkWords, len(words))
		if end-i >= minWords {
			chunks = append(chunks, strings.Join(words[i:end], " "))
		}
	}

	seen := make(map[string]bool, len(chunks))
	unique := chunks[:0]
	for _, c := range chunks {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	return unique
}
