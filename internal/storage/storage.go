// Package storage keeps the reference library: the named documents that
// submitted texts are compared against.
package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no document has the requested name.
	ErrNotFound = errors.New("storage: document not found")
	// ErrInvalidName is returned for blank document names.
	ErrInvalidName = errors.New("storage: invalid document name")
)

// Document is one entry of the library, keyed by its unique Name.
type Document struct {
	Name    string    `json:"name"`
	Text    string    `json:"text"`
	Format  string    `json:"format"`
	Words   int       `json:"words"`
	AddedAt time.Time `json:"added_at"`
}

// ContentStorage defines the interface for persisting library documents.
// Saving a document under an existing name replaces it.
type ContentStorage interface {
	Save(doc *Document) error
	Get(name string) (*Document, error)
	Delete(name string) error
	List() ([]*Document, error)
	Close() error
}

// Open creates the backend named by backend ("memory", "file" or "sqlite");
// dir is ignored for memory storage.
func Open(backend, dir string) (ContentStorage, error) {
	switch strings.ToLower(backend) {
	case "memory":
		return NewMemoryStorage(), nil
	case "file", "":
		return NewFileStorage(dir)
	case "sqlite":
		return NewSQLiteStorage(dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// Corpus returns the name -> text mapping the matching engine consumes.
func Corpus(s ContentStorage) (map[string]string, error) {
	docs, err := s.List()
	if err != nil {
		return nil, err
	}
	corpus := make(map[string]string, len(docs))
	for _, d := range docs {
		corpus[d.Name] = d.Text
	}
	return corpus, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	return nil
}

func sortByName(docs []*Document) {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Name < docs[j].Name
	})
}
