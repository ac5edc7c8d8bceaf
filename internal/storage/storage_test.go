package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/veritas/internal/storage"
)

type backend struct {
	name string
	open func(t *testing.T) storage.ContentStorage
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) storage.ContentStorage {
			return storage.NewMemoryStorage()
		}},
		{"file", func(t *testing.T) storage.ContentStorage {
			s, err := storage.NewFileStorage(t.TempDir())
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) storage.ContentStorage {
			s, err := storage.NewSQLiteStorage(t.TempDir())
			require.NoError(t, err)
			return s
		}},
	}
}

func doc(name, text string) *storage.Document {
	return &storage.Document{
		Name:    name,
		Text:    text,
		Format:  "txt",
		Words:   len(text),
		AddedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStorage_SaveAndGet(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()

			require.NoError(t, s.Save(doc("essay.txt", "some library text")))

			got, err := s.Get("essay.txt")
			require.NoError(t, err)
			assert.Equal(t, "essay.txt", got.Name)
			assert.Equal(t, "some library text", got.Text)
			assert.Equal(t, "txt", got.Format)
			assert.True(t, got.AddedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
		})
	}
}

func TestStorage_SaveReplaces(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()

			require.NoError(t, s.Save(doc("a.txt", "first")))
			require.NoError(t, s.Save(doc("a.txt", "second")))

			docs, err := s.List()
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, "second", docs[0].Text)
		})
	}
}

func TestStorage_ListSortedByName(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()

			for _, name := range []string{"zeta.txt", "alpha.pdf", "mid.docx"} {
				require.NoError(t, s.Save(doc(name, "text of "+name)))
			}

			docs, err := s.List()
			require.NoError(t, err)
			require.Len(t, docs, 3)
			assert.Equal(t, "alpha.pdf", docs[0].Name)
			assert.Equal(t, "mid.docx", docs[1].Name)
			assert.Equal(t, "zeta.txt", docs[2].Name)
		})
	}
}

func TestStorage_DeleteAndNotFound(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()

			require.NoError(t, s.Save(doc("gone.txt", "bye")))
			require.NoError(t, s.Delete("gone.txt"))

			_, err := s.Get("gone.txt")
			assert.ErrorIs(t, err, storage.ErrNotFound)
			assert.ErrorIs(t, s.Delete("gone.txt"), storage.ErrNotFound)
		})
	}
}

func TestStorage_InvalidName(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()

			assert.ErrorIs(t, s.Save(doc("  ", "text")), storage.ErrInvalidName)
		})
	}
}

func TestCorpus(t *testing.T) {
	s := storage.NewMemoryStorage()
	require.NoError(t, s.Save(doc("a.txt", "alpha")))
	require.NoError(t, s.Save(doc("b.txt", "beta")))

	corpus, err := storage.Corpus(s)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"}, corpus)
}

func TestFileStorage_SimilarNamesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewFileStorage(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save(doc("a.txt", "dot")))
	require.NoError(t, s.Save(doc("a_txt", "underscore")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	got, err := s.Get("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "dot", got.Text)
}

func TestFileStorage_SkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0644))
	require.NoError(t, s.Save(doc("kept.txt", "kept")))

	docs, err := s.List()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kept.txt", docs[0].Name)
}

func TestSQLiteStorage_Persists(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewSQLiteStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(doc("keep.txt", "durable")))
	require.NoError(t, s.Close())

	reopened, err := storage.NewSQLiteStorage(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "durable", got.Text)
}

func TestOpen(t *testing.T) {
	for _, name := range []string{"memory", "file", "sqlite", "SQLite"} {
		s, err := storage.Open(name, t.TempDir())
		require.NoError(t, err, name)
		require.NoError(t, s.Close())
	}

	_, err := storage.Open("redis", t.TempDir())
	assert.Error(t, err)
}
