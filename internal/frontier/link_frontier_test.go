package frontier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/veritas/internal/frontier"
	"github.com/knowledge-engine/veritas/internal/provider"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"HTTPS://Example.COM/Path/", "https://example.com/Path", false},
		{"http://example.com/#section", "http://example.com/", false},
		{"  https://example.com/a?q=1  ", "https://example.com/a?q=1", false},
		{"", "", true},
		{"ftp://example.com/file", "", true},
		{"/relative", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := frontier.NormalizeURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFrontier_DeduplicatesInOrder(t *testing.T) {
	f := frontier.New(0)

	added, err := f.Add(provider.Result{Title: "B", Link: "https://b.example/page"}, "chunk one")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.Add(provider.Result{Title: "A", Link: "https://a.example/"}, "chunk one")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.Add(provider.Result{Title: "B again", Link: "https://B.example/page/#top"}, "chunk two")
	require.NoError(t, err)
	assert.False(t, added)

	links := f.Links()
	require.Len(t, links, 2)
	assert.Equal(t, "https://b.example/page", links[0].URL)
	assert.Equal(t, "b.example", links[0].Domain)
	assert.Equal(t, "B", links[0].Result.Title)
	assert.Equal(t, "chunk one", links[0].Chunk)
	assert.Equal(t, 2, links[0].Seen)
	assert.Equal(t, "https://a.example/", links[1].URL)

	stats := f.Stats()
	assert.Equal(t, 2, stats.TotalAdded)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 2, stats.CurrentLinks)
}

func TestFrontier_RejectsInvalidAndOverflow(t *testing.T) {
	f := frontier.New(1)

	_, err := f.Add(provider.Result{Link: "mailto:someone@example.com"}, "c")
	assert.Error(t, err)

	added, err := f.Add(provider.Result{Link: "https://one.example"}, "c")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.Add(provider.Result{Link: "https://two.example"}, "c")
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 2, f.Stats().Rejected)
}
