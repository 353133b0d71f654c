// Package search maintains a SQLite FTS5 full-text index over the artifact
// repository. The index is derived data: it is rebuilt from the ledger and
// the artifact files, and losing it loses nothing.
package search

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/HendryAvila/respec/internal/repo"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Index wraps the SQLite database holding the searchable artifact content.
type Index struct {
	db   *sql.DB
	repo *repo.Repository
}

// Result is one ranked search hit.
type Result struct {
	ArtifactID string  `json:"artifact_id"`
	Name       string  `json:"name"`
	Status     string  `json:"status,omitempty"`
	Snippet    string  `json:"snippet"`
	Rank       float64 `json:"rank"`
}

// Open creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func Open(r *repo.Repository, dataDir string) (*Index, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("search: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "search.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("search: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("search: pragma %q: %w", p, err)
		}
	}

	idx := &Index{db: db, repo: r}
	if err := idx.migrate(); err != nil {
		return nil, fmt.Errorf("search: migration: %w", err)
	}
	return idx, nil
}

// Close closes the underlying database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			artifact_id TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			status      TEXT NOT NULL,
			content     TEXT NOT NULL
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			artifact_id,
			name,
			content,
			content='documents',
			content_rowid='id'
		);
	`
	_, err := x.db.Exec(schema)
	return err
}

// Reindex rebuilds the whole index from the ledger, one row per artifact.
// Artifacts whose content cannot be read are skipped. Returns the number of
// artifacts indexed.
func (x *Index) Reindex() (int, error) {
	entries, err := x.repo.Index().All()
	if err != nil {
		return 0, fmt.Errorf("search: read ledger: %w", err)
	}

	tx, err := x.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO documents_fts(documents_fts) VALUES('delete-all')`); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`DELETE FROM documents`); err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		a, err := x.repo.Get(e.ArtifactID)
		if err != nil {
			continue
		}
		res, err := tx.Exec(
			`INSERT INTO documents (artifact_id, name, status, content) VALUES (?, ?, ?, ?)`,
			e.ArtifactID, e.Name, e.Status, a.Content,
		)
		if err != nil {
			return 0, fmt.Errorf("search: index %s: %w", e.ArtifactID, err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(
			`INSERT INTO documents_fts (rowid, artifact_id, name, content) VALUES (?, ?, ?, ?)`,
			rowid, e.ArtifactID, e.Name, a.Content,
		); err != nil {
			return 0, fmt.Errorf("search: index %s: %w", e.ArtifactID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// Search performs ranked full-text search over indexed artifact content.
// An empty or whitespace-only query returns no results.
func (x *Index) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := x.db.Query(`
		SELECT d.artifact_id, d.name, d.status,
		       snippet(documents_fts, 2, '[', ']', '…', 12),
		       fts.rank
		FROM documents_fts fts
		JOIN documents d ON d.id = fts.rowid
		WHERE documents_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`,
		ftsQuery, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ArtifactID, &r.Name, &r.Status, &r.Snippet, &r.Rank); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// sanitizeFTS quotes each word so user input cannot inject FTS5 operators.
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}
