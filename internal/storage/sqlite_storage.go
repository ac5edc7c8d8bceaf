package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    name TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    format TEXT NOT NULL,
    words INTEGER NOT NULL,
    added_at TEXT NOT NULL
);
`

// SQLiteStorage keeps the library in a single SQLite database file.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens (creating if needed) library.db inside dir.
func NewSQLiteStorage(dir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(dir, "library.db")

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStorage{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStorage) Path() string {
	return s.path
}

func (s *SQLiteStorage) Save(doc *Document) error {
	if err := validateName(doc.Name); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO documents(name, text, format, words, added_at) VALUES(?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET
			text = excluded.text,
			format = excluded.format,
			words = excluded.words,
			added_at = excluded.added_at`,
		doc.Name, doc.Text, doc.Format, doc.Words, doc.AddedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Get(name string) (*Document, error) {
	row := s.db.QueryRow(`SELECT name, text, format, words, added_at FROM documents WHERE name = ?`, name)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *SQLiteStorage) Delete(name string) error {
	res, err := s.db.Exec(`DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) List() ([]*Document, error) {
	rows, err := s.db.Query(`SELECT name, text, format, words, added_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (*Document, error) {
	var (
		doc     Document
		addedAt string
	)
	if err := r.Scan(&doc.Name, &doc.Text, &doc.Format, &doc.Words, &addedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at %q: %w", addedAt, err)
	}
	doc.AddedAt = t
	return &doc, nil
}
