// Package snippets is a SQLite-backed store of keyword → expansion
// templates. A composing reading that exactly matches a keyword surfaces
// the expansion as a candidate.
//
// Templates may contain {date} and {time} variables, substituted at
// expansion time.
package snippets

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("snippets: keyword not found")

const schema = `
CREATE TABLE IF NOT EXISTS snippets (
	keyword    TEXT PRIMARY KEY,
	expansion  TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Store holds snippet templates in a local SQLite database.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens (or creates) the snippet database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("snippets: create directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("snippets: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("snippets: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Put inserts or replaces a snippet.
func (s *Store) Put(keyword, expansion string) error {
	if keyword == "" {
		return errors.New("snippets: empty keyword")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO snippets (keyword, expansion, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(keyword) DO UPDATE SET expansion = excluded.expansion`,
		keyword, expansion, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("snippets: put %q: %w", keyword, err)
	}
	return nil
}

// Delete removes a snippet.
func (s *Store) Delete(keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM snippets WHERE keyword = ?`, keyword)
	if err != nil {
		return fmt.Errorf("snippets: delete %q: %w", keyword, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, keyword)
	}
	return nil
}

// Snippet is one stored template.
type Snippet struct {
	Keyword   string
	Expansion string
}

// List returns all snippets ordered by keyword.
func (s *Store) List() ([]Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT keyword, expansion FROM snippets ORDER BY keyword`)
	if err != nil {
		return nil, fmt.Errorf("snippets: list: %w", err)
	}
	defer rows.Close()

	var out []Snippet
	for rows.Next() {
		var sn Snippet
		if err := rows.Scan(&sn.Keyword, &sn.Expansion); err != nil {
			return nil, fmt.Errorf("snippets: scan: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// Expand returns the rendered expansion for a keyword. The second return is
// false when the keyword is unknown.
func (s *Store) Expand(keyword string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var expansion string
	err := s.db.QueryRow(`SELECT expansion FROM snippets WHERE keyword = ?`, keyword).Scan(&expansion)
	if err != nil {
		return "", false
	}
	return renderVariables(expansion, time.Now()), true
}

// renderVariables substitutes {date} and {time} in a template.
func renderVariables(template string, now time.Time) string {
	out := strings.ReplaceAll(template, "{date}", now.Format("2006-01-02"))
	out = strings.ReplaceAll(out, "{time}", now.Format("15:04"))
	return out
}
