// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ProgressStore persists crawl progress in SQLite so a run interrupted by
// a browser crash or process kill resumes where it left off instead of
// reprocessing the whole list.
type ProgressStore struct {
	db *sql.DB
}

// OpenProgress opens or creates the progress database at path, creating
// parent directories and the schema as needed.
func OpenProgress(path string) (*ProgressStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating progress directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening progress database: %w", err)
	}

	s := &ProgressStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating progress schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *ProgressStore) Close() error {
	return s.db.Close()
}

func (s *ProgressStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS crawl_state (
			crawl_id TEXT PRIMARY KEY,
			last_index INTEGER NOT NULL DEFAULT -1
		)`,
		`CREATE TABLE IF NOT EXISTS crawl_items (
			crawl_id TEXT NOT NULL REFERENCES crawl_state(crawl_id),
			item_id TEXT NOT NULL,
			status TEXT NOT NULL,
			PRIMARY KEY (crawl_id, item_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_items_crawl ON crawl_items(crawl_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// LastIndex returns the highest list index processed for crawlID, or -1
// when the crawl has no recorded progress.
func (s *ProgressStore) LastIndex(crawlID string) (int, error) {
	var idx int
	err := s.db.QueryRow(
		`SELECT last_index FROM crawl_state WHERE crawl_id = ?`, crawlID).Scan(&idx)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("reading crawl state: %w", err)
	}
	return idx, nil
}

// Seen reports whether an item ID was already processed in this crawl.
func (s *ProgressStore) Seen(crawlID, itemID string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM crawl_items WHERE crawl_id = ? AND item_id = ?`,
		crawlID, itemID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading crawl item: %w", err)
	}
	return true, nil
}

// MarkProcessed records an item's outcome and advances the crawl's last
// processed index in one transaction, so a crash between the two writes
// cannot leave them inconsistent.
func (s *ProgressStore) MarkProcessed(crawlID, itemID string, index int, status string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO crawl_state (crawl_id, last_index) VALUES (?, ?)
		 ON CONFLICT(crawl_id) DO UPDATE SET last_index = MAX(last_index, excluded.last_index)`,
		crawlID, index); err != nil {
		return fmt.Errorf("updating crawl state: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO crawl_items (crawl_id, item_id, status) VALUES (?, ?, ?)
		 ON CONFLICT(crawl_id, item_id) DO UPDATE SET status = excluded.status`,
		crawlID, itemID, status); err != nil {
		return fmt.Errorf("recording crawl item: %w", err)
	}
	return tx.Commit()
}

// Reset forgets all progress for crawlID.
func (s *ProgressStore) Reset(crawlID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM crawl_items WHERE crawl_id = ?`, crawlID); err != nil {
		return fmt.Errorf("clearing crawl items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM crawl_state WHERE crawl_id = ?`, crawlID); err != nil {
		return fmt.Errorf("clearing crawl state: %w", err)
	}
	return tx.Commit()
}
