package storage

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStorage implements ContentStorage using the local file system, one
// JSON file per document
type FileStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// Save writes the document to a JSON file
func (fs *FileStorage) Save(doc *Document) error {
	if err := validateName(doc.Name); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	path := filepath.Join(fs.baseDir, safeFilename(doc.Name))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// Get retrieves a document from disk
func (fs *FileStorage) Get(name string) (*Document, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.read(filepath.Join(fs.baseDir, safeFilename(name)))
}

// Delete removes a document file
func (fs *FileStorage) Delete(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err := os.Remove(filepath.Join(fs.baseDir, safeFilename(name)))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// List loads every document in the storage directory
func (fs *FileStorage) List() ([]*Document, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	docs := make([]*Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		doc, err := fs.read(filepath.Join(fs.baseDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sortByName(docs)
	return docs, nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

func (fs *FileStorage) read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", filepath.Base(path), err)
	}
	return &doc, nil
}

// safeFilename converts a document name to a safe filename. The hash suffix
// keeps names that sanitize to the same prefix apart.
func safeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	safe := b.String()
	// Limit length
	if len(safe) > 80 {
		safe = safe[:80]
	}
	sum := md5.Sum([]byte(name))
	return safe + "-" + hex.EncodeToString(sum[:6]) + ".json"
}
