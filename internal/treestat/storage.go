package treestat

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDatabase opens or creates a SQLite database at the provided path and
// ensures the schema is available.
func OpenDatabase(ctx context.Context, path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the required tables if they do not already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    root TEXT NOT NULL,
    generated_at DATETIME NOT NULL,
    elapsed_ms INTEGER NOT NULL,
    files INTEGER NOT NULL,
    lines INTEGER NOT NULL,
    chars INTEGER NOT NULL,
    tokens INTEGER NOT NULL,
    binary_files INTEGER NOT NULL,
    unreadable_files INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root, generated_at);
CREATE TABLE IF NOT EXISTS run_categories (
    run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    files INTEGER NOT NULL,
    lines INTEGER NOT NULL,
    chars INTEGER NOT NULL,
    tokens INTEGER NOT NULL,
    PRIMARY KEY (run_id, category)
);
`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ArchiveTarget stores every published report in SQLite.
type ArchiveTarget struct {
	db *sql.DB
}

// NewArchiveTarget returns a target writing to db. The schema must already exist.
func NewArchiveTarget(db *sql.DB) *ArchiveTarget {
	return &ArchiveTarget{db: db}
}

func (t *ArchiveTarget) Name() string {
	return "archive"
}

// PublishReport inserts the run and its category totals in one transaction.
func (t *ArchiveTarget) PublishReport(ctx context.Context, report *Report) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := insertRun(ctx, tx, report); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, report *Report) error {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (run_id, root, generated_at, elapsed_ms, files, lines, chars, tokens, binary_files, unreadable_files)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, report.RunID, report.Root, report.GeneratedAt.UTC(), report.Elapsed.Milliseconds(),
		report.Totals.Files, report.Totals.Lines, report.Totals.Chars, report.Totals.Tokens,
		report.BinaryFiles, report.UnreadableFiles); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, row := range report.CategoryRows() {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO run_categories (run_id, category, files, lines, chars, tokens)
VALUES (?, ?, ?, ?, ?, ?)
`, report.RunID, row.Name, row.Files, row.Lines, row.Chars, row.Tokens); err != nil {
			return fmt.Errorf("insert category %s: %w", row.Name, err)
		}
	}
	return nil
}
